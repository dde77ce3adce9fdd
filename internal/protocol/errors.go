package protocol

import (
	"errors"
	"fmt"
)

// ErrRequestFailed matches every error returned by Client.
var ErrRequestFailed = errors.New("request failed")

// Error is the single error type surfaced by the client. Transport
// failures, HTTP error statuses, undecodable bodies and explicit
// success:false replies all end up here.
type Error struct {
	Op      string // initiate, baseline, next, report
	Status  int    // HTTP status, 0 when no response was received
	Message string // server-provided message, if any
	Err     error  // underlying cause, if any
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrRequestFailed) match any *Error.
func (e *Error) Is(target error) bool {
	return target == ErrRequestFailed
}
