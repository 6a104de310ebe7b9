package scraper

import (
	"errors"
	"fmt"
)

// Extraction failure kinds. The driver treats both as "no more data on this
// page", never as fatal errors.
var (
	// ErrStateMissing indicates the page carried no recognizable state block.
	ErrStateMissing = errors.New("hibid state block not found")

	// ErrStateMalformed indicates the state block was present but its JSON
	// could not be parsed.
	ErrStateMalformed = errors.New("hibid state block malformed")
)

// FetchError is returned once the fetcher has exhausted its retry budget.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPStatusError marks a non-2xx response. It is considered transient and
// retried like a network error.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected http status %d", e.StatusCode)
}
