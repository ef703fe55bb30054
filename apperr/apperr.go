package apperr

import (
	"errors"
	"net/http"
)

// Sentinel errors for the whole service. Data-access and handler code wrap
// these with fmt.Errorf("%w: ..."), and the single Status mapper below turns
// them into HTTP responses. Per-call-site status guessing is not allowed.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrUpstream        = errors.New("upstream failure")
)

// UnauthenticatedMessage is deliberately generic: an expired token, a
// malformed one and an identity outage are indistinguishable to the caller.
const UnauthenticatedMessage = "You are unauthenticated."

type userError struct {
	err error
	msg string
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

// WithMessage attaches an exact user-facing message to err. Status still
// follows the wrapped sentinel; Message returns msg verbatim. This is how
// handlers surface specific texts without mapping statuses themselves.
func WithMessage(err error, msg string) error {
	return &userError{err: err, msg: msg}
}

// Status maps any error to an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message for an error. Internal details
// never leak to the client.
func Message(err error) string {
	var ue *userError
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return UnauthenticatedMessage
	case errors.As(err, &ue):
		return ue.msg
	case errors.Is(err, ErrForbidden):
		return "You are not allowed to do that."
	case errors.Is(err, ErrNotFound):
		return "Not found."
	case errors.Is(err, ErrValidation):
		return err.Error()
	default:
		return "Something went wrong."
	}
}
