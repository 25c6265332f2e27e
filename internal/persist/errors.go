package persist

import (
	"errors"
	"fmt"
)

var (
	ErrNoSnapshot        = errors.New("no snapshot stored for session")
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	ErrNoSession         = errors.New("no session id configured")
)

// StatusError is returned when the whiteboard endpoint answers outside 2xx.
type StatusError struct {
	Method string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s /whiteboard: status %d", e.Method, e.Code)
	}
	return fmt.Sprintf("%s /whiteboard: status %d: %s", e.Method, e.Code, e.Body)
}
