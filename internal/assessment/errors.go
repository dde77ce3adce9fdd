package assessment

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Machine operations. All of them are
// recoverable: the session is left exactly as it was.
var (
	ErrNoSession       = errors.New("no active session")
	ErrSessionActive   = errors.New("a session is already active")
	ErrSessionComplete = errors.New("session is already complete")
	ErrNoQuestion      = errors.New("no question is displayed")
	ErrNoSelection     = errors.New("no option selected")
	ErrCannotRetreat   = errors.New("no earlier question in this batch")
	ErrRequestInFlight = errors.New("a request is already in flight")
)

// SessionStartError reports an opening reply that cannot start a session.
type SessionStartError struct {
	SessionID string
	Reason    string
}

func (e *SessionStartError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("start session: %s", e.Reason)
	}
	return fmt.Sprintf("start session %s: %s", e.SessionID, e.Reason)
}

// IsFatal reports whether err ends the session for good. Everything else,
// including transport failures, leaves the session where it was so the
// user can retry.
func IsFatal(err error) bool {
	var startErr *SessionStartError
	return errors.As(err, &startErr)
}
