package remote

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/pders01/flip/internal/saved"
)

// ErrUnreachable matches every transport-level failure: refused
// connections, DNS errors and timeouts.
var ErrUnreachable = errors.New("saved-item service unreachable")

// Error is a rejection reported by the service. Message is the service's
// own wording and is shown to the user as is.
type Error struct {
	Status  int
	Message string
	kind    error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("service returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return e.Message
}

// Unwrap exposes the matching saved sentinel, if any, so callers can use
// errors.Is(err, saved.ErrNotFound) and friends.
func (e *Error) Unwrap() error { return e.kind }

// Temporary reports server-side failures as retryable.
func (e *Error) Temporary() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

func newError(status int, message string) *Error {
	e := &Error{Status: status, Message: message}
	switch {
	case status == http.StatusNotFound:
		e.kind = saved.ErrNotFound
	case status == http.StatusBadRequest && message == "Article already saved":
		e.kind = saved.ErrDuplicate
	case status == http.StatusBadRequest && message == "Title and URL are required":
		e.kind = saved.ErrInvalidDraft
	}
	return e
}

type transportError struct {
	op  string
	err error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *transportError) Unwrap() []error { return []error{ErrUnreachable, e.err} }

func (e *transportError) Temporary() bool { return true }
