package tui

import (
	"errors"

	"github.com/pders01/flip/internal/remote"
	"github.com/pders01/flip/internal/saved"
)

// describeErr turns an operation failure into a status line. Messages from
// the service are shown verbatim; connectivity problems get a retry hint.
func describeErr(err error) (string, StatusKind) {
	var svc *remote.Error
	switch {
	case err == nil:
		return "", StatusInfo
	case errors.Is(err, saved.ErrToggleInFlight):
		return MsgToggleBusy, StatusWarn
	case errors.As(err, &svc):
		return svc.Error(), StatusError
	case errors.Is(err, remote.ErrUnreachable):
		return "Can't reach the saved-article service, try again", StatusError
	case saved.IsRetryable(err):
		return err.Error() + " (try again)", StatusError
	default:
		return err.Error(), StatusError
	}
}
