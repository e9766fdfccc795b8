package upstream

import (
	"fmt"
)

// UpstreamError is returned by Fetch once every attempt has failed. Err is the
// error from the last attempt.
type UpstreamError struct {
	Source   string
	URL      string
	Attempts int
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %s failed after %d attempt(s): %v", e.Source, e.URL, e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}
