// Package api holds the HTTP plumbing shared by the dish and order
// resources: error kinds, the central error formatter, request decoding and
// middleware.
package api

import (
	"fmt"
	"net/http"
)

// Error is a client-facing failure. Any step of a handler chain may return
// one to halt the chain; Handle turns it into the JSON error response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Validation reports a missing or malformed field.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a request the resource's current state forbids. Clients
// have always received 400 for these, so that is kept.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// IDMismatch reports a body id that contradicts the route id.
func IDMismatch(kind, bodyID, routeID string) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("%s id does not match route id. %s: %s, Route: %s", kind, kind, bodyID, routeID),
	}
}

func MethodNotAllowed(method, path string) *Error {
	return &Error{
		Status:  http.StatusMethodNotAllowed,
		Message: fmt.Sprintf("%s not allowed for %s", method, path),
	}
}

func TooLarge(limit int64) *Error {
	return &Error{
		Status:  http.StatusRequestEntityTooLarge,
		Message: fmt.Sprintf("Request body must not exceed %d bytes", limit),
	}
}
