// Package fetcher opens data locations (local paths, http(s) and ftp URLs)
// and parses the CSV, JSON, XLSX and ZIP files they hold.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Fetcher opens a data location for reading.
type Fetcher interface {
	// Open returns the content at location. The caller closes it.
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// Options configures a Router.
type Options struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxAttempts       int
}

// Router implements Fetcher by dispatching on the location's scheme.
// Anything that is not an http, https or ftp URL is read from disk.
type Router struct {
	http *HTTPFetcher
	ftp  *FTPFetcher
}

// New creates a Router.
func New(opts Options) *Router {
	return &Router{
		http: NewHTTPFetcher(HTTPOptions{
			UserAgent:         opts.UserAgent,
			Timeout:           opts.Timeout,
			RequestsPerSecond: opts.RequestsPerSecond,
			MaxAttempts:       opts.MaxAttempts,
		}),
		ftp: NewFTPFetcher(FTPOptions{Timeout: opts.Timeout}),
	}
}

// Open implements Fetcher.
func (r *Router) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	switch scheme(location) {
	case "http", "https":
		return r.http.Download(ctx, location)
	case "ftp":
		return r.ftp.Download(ctx, location)
	default:
		f, err := os.Open(localPath(location))
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", location)
		}
		return f, nil
	}
}

// Localize makes location available as a file on disk, downloading remote
// locations into dir. Local paths are returned unchanged.
func (r *Router) Localize(ctx context.Context, location, dir string) (string, error) {
	var err error
	dest := filepath.Join(dir, remoteBase(location))
	switch scheme(location) {
	case "http", "https":
		_, err = r.http.DownloadToFile(ctx, location, dest)
	case "ftp":
		_, err = r.ftp.DownloadToFile(ctx, location, dest)
	default:
		return localPath(location), nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: localize %s", location)
	}
	return dest, nil
}

// IsRemote reports whether location is fetched over the network.
func IsRemote(location string) bool {
	switch scheme(location) {
	case "http", "https", "ftp":
		return true
	}
	return false
}

func scheme(location string) string {
	i := strings.Index(location, "://")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(location[:i])
}

func localPath(location string) string {
	if scheme(location) == "file" {
		if u, err := url.Parse(location); err == nil {
			return u.Path
		}
	}
	return location
}

func remoteBase(location string) string {
	if u, err := url.Parse(location); err == nil {
		if base := filepath.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	return "download"
}
