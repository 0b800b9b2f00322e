package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout means the request exceeded the configured deadline and was
	// aborted.
	ErrTimeout = errors.New("upstream request timed out")

	// ErrMalformedResponse means the body was not valid JSON.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// HTTPError is a non-2xx upstream status, kept with a body snippet for
// diagnostics.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.Status)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}
