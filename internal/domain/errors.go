package domain

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindInvalidState
	KindConfiguration
	KindAuthentication
	KindIPNRegistration
	KindGatewaySubmission
	KindStatusFetch
	KindUnauthorized
)

var kindNames = map[Kind]string{
	KindInternal:          "InternalError",
	KindValidation:        "ValidationError",
	KindNotFound:          "NotFoundError",
	KindInvalidState:      "InvalidStateError",
	KindConfiguration:     "ConfigurationError",
	KindAuthentication:    "AuthenticationError",
	KindIPNRegistration:   "IpnRegistrationError",
	KindGatewaySubmission: "GatewaySubmissionError",
	KindStatusFetch:       "StatusFetchError",
	KindUnauthorized:      "UnauthorizedError",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return kindNames[KindInternal]
}

// HTTPStatus is the response code a handler uses for an error of this kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindInvalidState:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error is the error type returned by the service layer. Message is safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func Validation(msg string) *Error   { return NewError(KindValidation, msg, nil) }
func NotFound(msg string) *Error     { return NewError(KindNotFound, msg, nil) }
func InvalidState(msg string) *Error { return NewError(KindInvalidState, msg, nil) }
func Unauthorized(msg string) *Error { return NewError(KindUnauthorized, msg, nil) }

func Internal(msg string, cause error) *Error {
	return NewError(KindInternal, msg, cause)
}

// KindOf returns the kind of err, KindInternal for anything that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the caller-facing message for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}
