package saved

import (
	"context"
	"errors"
)

var (
	ErrToggleInFlight = errors.New("a save is already in progress")
	ErrStale          = errors.New("result superseded by a newer load")
	ErrNotFound       = errors.New("saved article not found")
	ErrDuplicate      = errors.New("article already saved")
	ErrInvalidDraft   = errors.New("title and URL are required")
	ErrMissingID      = errors.New("saved article has no identifier")
)

// IsRetryable reports whether err is a connectivity failure that a plain
// retry may fix, as opposed to a rejection by the store.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}
