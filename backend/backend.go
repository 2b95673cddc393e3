package backend

import (
	"context"
	"errors"
	"net"
	"time"
)

// Fetcher is the interface all fetch backends implement. A backend
// turns a URL into raw page markup; it does not extract or score.
type Fetcher interface {
	// Name returns the backend identifier (e.g. "splash", "http", "browser").
	Name() string

	// Fetch retrieves the page content for the given request. An
	// empty Result.Content with a nil error is a valid outcome: the
	// page was reachable but had nothing to say.
	Fetch(ctx context.Context, req *Request) (*Result, error)
}

// Request contains everything a backend needs to fetch a page.
type Request struct {
	URL       string
	UserAgent string
	Headers   map[string]string
}

// Result is the output of a backend fetch.
type Result struct {
	// Content is the raw page markup. May be empty.
	Content string

	// Backend names the fetcher that produced this result.
	Backend string

	// Elapsed is how long the fetch took.
	Elapsed time.Duration
}

// isTimeout reports whether err is a deadline, cancellation, or
// network timeout error.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
