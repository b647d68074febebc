package registrar

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the single failure shape of the gateway. Status is the upstream
// HTTP status, or zero when no response was received. Message never carries
// credentials.
type Error struct {
	Op      string
	Status  int
	Message string
	Timeout bool
}

func (e *Error) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("registrar %s: timed out", e.Op)
	case e.Status == 0:
		return fmt.Sprintf("registrar %s: %s", e.Op, e.Message)
	default:
		return fmt.Sprintf("registrar %s: status %d: %s", e.Op, e.Status, e.Message)
	}
}

// Transient reports whether the failure may clear on its own: timeouts,
// transport failures, rate limiting and 5xx responses.
func (e *Error) Transient() bool {
	return e.Timeout || e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

func AsError(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

func IsNotFound(err error) bool {
	re, ok := AsError(err)
	return ok && re.Status == http.StatusNotFound
}

func IsTimeout(err error) bool {
	re, ok := AsError(err)
	return ok && re.Timeout
}

func IsTransient(err error) bool {
	re, ok := AsError(err)
	return ok && re.Transient()
}
