package webclient

import "fmt"

// FetchError describes a failed fetch of one URL: either a transport
// error or a non-success HTTP status. Individual fetch failures are
// skippable: the crawler logs them and moves on.
type FetchError struct {
	// URL is the request URL.
	URL string

	// StatusCode is the HTTP status, or 0 for transport errors.
	StatusCode int

	// Attempts is how many tries were made including retries.
	Attempts int

	// Err is the underlying transport error, if any.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %v after %d attempt(s)", e.URL, e.Err, e.Attempts)
}

// Unwrap returns the underlying transport error.
func (e *FetchError) Unwrap() error {
	return e.Err
}
