// Package store reads and writes flat price records: one row per outward
// code, year, dwelling type and size band. Records come from SQLite,
// Postgres, or CSV, JSON and XLSX files, and are folded into the area
// snapshot alongside the price payloads.
package store

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/london-map/internal/fetcher"
)

// PriceRecord is one flat price observation. Price is nil when the source
// published no value for the cell.
type PriceRecord struct {
	Outward      string   `json:"outward"`
	Borough      string   `json:"borough,omitempty"`
	Year         int      `json:"year"`
	PropertyType string   `json:"propertytype"`
	AreaBin      string   `json:"area_bin"`
	Price        *float64 `json:"price"`
}

// Source yields price records.
type Source interface {
	PriceRecords(ctx context.Context) ([]PriceRecord, error)
	Close() error
}

// Store is a Source that can also be written to.
type Store interface {
	Source
	Migrate(ctx context.Context) error
	// WritePriceRecords upserts records by (outward, year, property type,
	// area bin). With replace set, existing records are dropped first.
	WritePriceRecords(ctx context.Context, records []PriceRecord, replace bool) (int64, error)
	Imports(ctx context.Context, limit int) ([]Import, error)
}

// Import is one logged WritePriceRecords call.
type Import struct {
	ID         string    `json:"id"`
	Records    int64     `json:"records"`
	Replaced   bool      `json:"replaced"`
	ImportedAt time.Time `json:"imported_at"`
}

// Supported drivers.
const (
	DriverNone     = ""
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverXLSX     = "xlsx"
	DriverCSV      = "csv"
	DriverJSON     = "json"
)

// Drivers lists every non-empty driver name.
func Drivers() []string {
	return []string{DriverSQLite, DriverPostgres, DriverXLSX, DriverCSV, DriverJSON}
}

// Options selects a record source.
type Options struct {
	Driver string
	// DSN is a database path or connection string, or a file location.
	DSN   string
	Sheet string
}

// Localizer opens remote locations and copies them to disk.
type Localizer interface {
	fetcher.Fetcher
	Localize(ctx context.Context, location, dir string) (string, error)
}

// Open returns the configured source, or nil when no driver is set.
func Open(ctx context.Context, opts Options, f Localizer) (Source, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == DriverNone {
		return nil, nil
	}
	if opts.DSN == "" {
		return nil, eris.Errorf("store: %s driver needs a dsn", driver)
	}
	switch driver {
	case DriverSQLite, DriverPostgres:
		return OpenStore(ctx, opts)
	case DriverCSV, DriverJSON, DriverXLSX:
		return &FileSource{Location: opts.DSN, Format: driver, Sheet: opts.Sheet, Fetcher: f}, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", opts.Driver)
	}
}

// OpenStore opens and migrates a database-backed Store.
func OpenStore(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverSQLite:
		s, err = NewSQLite(opts.DSN)
	case DriverPostgres:
		s, err = NewPostgres(ctx, opts.DSN, nil)
	default:
		return nil, eris.Errorf("store: driver %q is read-only or unknown", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// tempDir creates a scratch directory for localized files.
func tempDir() (string, error) {
	dir, err := os.MkdirTemp("", "londonmap-records-")
	if err != nil {
		return "", eris.Wrap(err, "store: create temp dir")
	}
	return dir, nil
}
