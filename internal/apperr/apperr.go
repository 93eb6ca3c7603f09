// Package apperr defines the typed error taxonomy shared by the service and
// handler layers.  Every error carries a stable HTTP status code and a
// human-readable message.  Repository and driver errors are translated into
// these types at the service boundary; raw persistence errors never reach
// the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

// Error is a typed application error.  Status is the HTTP status code a
// handler should respond with; Message is safe to show to clients.
type Error struct {
	Status  int    // HTTP status code for this error
	Message string // client-facing message
}

func (e *Error) Error() string { return e.Message }

// Validation reports malformed or missing input (400).
func Validation(msg string) *Error { return &Error{Status: http.StatusBadRequest, Message: msg} }

// BadRequest reports a missing required parameter or an invalid value (400).
func BadRequest(msg string) *Error { return &Error{Status: http.StatusBadRequest, Message: msg} }

// Unauthorized reports an authentication failure: bad credentials, a bad,
// expired or revoked token, or an unverified account (401).
func Unauthorized(msg string) *Error { return &Error{Status: http.StatusUnauthorized, Message: msg} }

// Forbidden reports an authorization failure such as a role mismatch (403).
func Forbidden(msg string) *Error { return &Error{Status: http.StatusForbidden, Message: msg} }

// NotFound reports an absent referenced entity (404).
func NotFound(msg string) *Error { return &Error{Status: http.StatusNotFound, Message: msg} }

// Conflict reports a uniqueness violation (409).
func Conflict(msg string) *Error { return &Error{Status: http.StatusConflict, Message: msg} }

// StatusOf returns the HTTP status for err: the embedded status for typed
// errors, 500 for anything else.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the client-facing message for err.  Unrecognized errors
// map to a generic message so internal details are never leaked.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal server error"
}
