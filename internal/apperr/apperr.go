// Package apperr defines the error kinds the API reports to clients and how
// each kind maps onto an HTTP response.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the client-facing boundary.
type Kind int

const (
	// KindServer is any unexpected failure. Its detail never leaves the process.
	KindServer Kind = iota
	KindUnauthenticated
	KindNotFound
	KindValidation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_error"
	case KindConflict:
		return "conflict"
	default:
		return "server_error"
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a message that is safe to show to clients.
// Package-level sentinels are built with New and matched with errors.Is.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// New returns a sentinel error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation is shorthand for a one-off validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// KindOf reports the kind of the first *Error in err's chain, or KindServer.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

// MessageOf returns the client-safe message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindServer {
		return e.Message
	}
	return "Server error"
}
