// Package apperr defines judgecore's typed application errors and their
// mapping onto HTTP status codes and JSON error envelopes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error for HTTP status mapping and
// logging.
type Kind string

const (
	KindBadRequest        Kind = "bad_request"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindCorruptedSession  Kind = "corrupted_session"
	KindUpstreamUnavail   Kind = "upstream_unavailable"
	KindNoAvailableWorker Kind = "no_available_worker"
	KindMisconfigured     Kind = "misconfigured_service"
	KindInternal          Kind = "internal"
)

// statusByKind maps each Kind onto its HTTP status code, per the error
// handling design table.
var statusByKind = map[Kind]int{
	KindBadRequest:        http.StatusBadRequest,
	KindUnauthorized:      http.StatusUnauthorized,
	KindForbidden:         http.StatusForbidden,
	KindNotFound:          http.StatusNotFound,
	KindConflict:          http.StatusConflict,
	KindCorruptedSession:  http.StatusInternalServerError,
	KindUpstreamUnavail:   http.StatusServiceUnavailable,
	KindNoAvailableWorker: http.StatusServiceUnavailable,
	KindMisconfigured:     http.StatusInternalServerError,
	KindInternal:          http.StatusInternalServerError,
}

// Error is judgecore's application error type: a Kind plus a
// human-readable message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Status returns the HTTP status code for this error's Kind.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds a new *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a new *Error of the given kind, wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// As extracts an *Error from err, if present.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// StatusFor returns the HTTP status to use for an arbitrary error: the
// mapped status if it's an *Error, otherwise 500.
func StatusFor(err error) int {
	if e, ok := As(err); ok {
		return e.Status()
	}
	return http.StatusInternalServerError
}
