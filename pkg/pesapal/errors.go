package pesapal

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Op names the gateway stage an error came from.
type Op string

const (
	OpAuth   Op = "auth"
	OpIPN    Op = "ipn"
	OpSubmit Op = "submit"
	OpStatus Op = "status"
)

var (
	ErrMissingCredentials = errors.New("pesapal: consumer key and secret are not configured")
	ErrMissingTrackingID  = errors.New("pesapal: order tracking id is required")
)

// Error is returned for any failed gateway call. Message carries the gateway's own
// message when the response had one.
type Error struct {
	Op         Op
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("pesapal %s: %s", e.Op, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (http %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the call failed because its deadline passed.
func (e *Error) Timeout() bool {
	return isTimeout(e.Err)
}

func transportError(op Op, err error) *Error {
	msg := "gateway request failed"
	if isTimeout(err) {
		msg = "gateway request timed out"
	}
	return &Error{Op: op, Message: msg, Err: err}
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
