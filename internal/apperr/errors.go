// Package apperr holds the error kinds shared by services and the HTTP layer.
// Services return them through New/Wrap (or fmt.Errorf with %w) and the server
// error handler maps them to status codes.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound is returned when a referenced account does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a duplicate email or phone.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredential covers bad or expired OTPs and refresh tokens.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrValidation marks malformed request input.
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized means the caller is not authenticated.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited is returned when a caller exceeds a send budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrDelivery means a notification could not be handed to its channel.
	ErrDelivery = errors.New("delivery failed")
)

// Error is a user-facing failure: Msg is safe to return to clients, Kind is
// one of the sentinels above and Cause, when set, is kept for logs.
type Error struct {
	Kind  error
	Msg   string
	Cause error
}

// New returns an *Error of the given kind.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap is New with an underlying cause attached.
func Wrap(kind error, msg string, cause error) error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Detail returns the message to show a client. Server faults are never
// described beyond a generic text.
func Detail(err error) string {
	if Status(err) >= http.StatusInternalServerError && !errors.Is(err, ErrDelivery) {
		return "internal server error"
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	return err.Error()
}

// Status returns the HTTP status code for err. The kind of the outermost
// *Error wins over sentinels found in its cause. Unknown errors map to 500.
func Status(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return statusOf(appErr.Kind)
	}
	return statusOf(err)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidCredential),
		errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrDelivery):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
