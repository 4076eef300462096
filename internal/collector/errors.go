package collector

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrSessionBootstrap means the landing page could not be loaded to seed cookies.
	ErrSessionBootstrap = errors.New("session bootstrap failed")
	// ErrMissingCredential means an endpoint needs the crumb but none was obtained.
	ErrMissingCredential = errors.New("missing crumb credential")
)

// RateLimitedError is returned instead of dispatching a request inside the
// minimum interval.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry in %s", e.Wait())
}

// Wait is RetryAfter rounded up to whole seconds, so a pending wait never
// reads as zero.
func (e *RateLimitedError) Wait() time.Duration {
	return (e.RetryAfter + time.Second - 1).Truncate(time.Second)
}

// FetchError describes a request that was dispatched but did not succeed.
// Status is set for non-2xx responses; Err for transport failures.
type FetchError struct {
	URL     string
	Status  int
	Err     error
	Timeout bool
}

func (e *FetchError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("fetch %s: timed out", e.URL)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s: status %d %s", e.URL, e.Status, http.StatusText(e.Status))
	}
}

func (e *FetchError) Unwrap() error { return e.Err }
