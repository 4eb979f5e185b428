// Package httperror carries an HTTP status code alongside an error so
// handlers can return one value and the responder can pick the right
// status and envelope.
package httperror

import (
	"fmt"
	"net/http"
)

// Error is an error with an HTTP status code. The message is what the
// client sees; the cause, if any, stays server-side.
type Error struct {
	status  int
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the HTTP status code.
func (e *Error) Code() int { return e.status }

// Message returns the client-facing message without the cause.
func (e *Error) Message() string { return e.message }

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.cause }

// New builds an error with an explicit status code.
func New(status int, message string) *Error {
	return &Error{status: status, message: message}
}

// Newf builds an error with an explicit status code and a formatted message.
func Newf(status int, format string, args ...any) *Error {
	return &Error{status: status, message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a status code and message to an underlying error.
func Wrap(status int, message string, cause error) *Error {
	return &Error{status: status, message: message, cause: cause}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(status int, cause error, format string, args ...any) *Error {
	return &Error{status: status, message: fmt.Sprintf(format, args...), cause: cause}
}

// BadRequest builds a 400 error.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message)
}

// BadRequestf builds a 400 error with a formatted message.
func BadRequestf(format string, args ...any) *Error {
	return Newf(http.StatusBadRequest, format, args...)
}

// Unauthorized builds a 401 error.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message)
}

// Unauthorizedf builds a 401 error with a formatted message.
func Unauthorizedf(format string, args ...any) *Error {
	return Newf(http.StatusUnauthorized, format, args...)
}

// NotFound builds a 404 error.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

// NotFoundf builds a 404 error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return Newf(http.StatusNotFound, format, args...)
}

// UnprocessableEntity builds a 422 error.
func UnprocessableEntity(message string) *Error {
	return New(http.StatusUnprocessableEntity, message)
}

// UnprocessableEntityf builds a 422 error with a formatted message.
func UnprocessableEntityf(format string, args ...any) *Error {
	return Newf(http.StatusUnprocessableEntity, format, args...)
}

// InternalError builds a 500 error.
func InternalError(message string) *Error {
	return New(http.StatusInternalServerError, message)
}

// InternalErrorf builds a 500 error with a formatted message.
func InternalErrorf(format string, args ...any) *Error {
	return Newf(http.StatusInternalServerError, format, args...)
}
