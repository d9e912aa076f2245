package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// statusError is a non-200 response.
type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("download: unexpected status %d from %s", e.code, e.url)
}

// transient reports whether a failed download is worth another attempt:
// throttling and gateway statuses, timeouts and refused or reset connections.
func transient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		switch se.code {
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED)
}

// backoff is the jittered delay before retry number attempt (0-based).
func backoff(base time.Duration, attempt int) time.Duration {
	d := base << attempt
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	// ±25% jitter
	jitter := (rand.Float64()*2 - 1) * 0.25 * float64(d)
	return d + time.Duration(jitter)
}

// withRetry runs fn up to attempts times while it fails transiently.
func withRetry[T any](ctx context.Context, attempts int, base time.Duration, url string, fn func() (T, error)) (T, error) {
	var (
		val T
		err error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		val, err = fn()
		if err == nil || ctx.Err() != nil || !transient(err) || attempt == attempts-1 {
			return val, err
		}
		zap.L().Warn("fetcher: retrying download",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		timer := time.NewTimer(backoff(base, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return val, err
		case <-timer.C:
		}
	}
	return val, err
}
