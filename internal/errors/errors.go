// Package errors provides the structured, caller-facing error types for the
// workload core. Every rule rejection carries a Kind plus enough detail for
// the caller to self-correct without guessing.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a caller-facing rejection.
type Kind string

const (
	KindValidation        Kind = "VALIDATION_ERROR"
	KindDailyLimit        Kind = "DAILY_LIMIT_EXCEEDED"
	KindOverlap           Kind = "OVERLAP_ERROR"
	KindBlockedByDeps     Kind = "TASK_BLOCKED_BY_DEPENDENCIES"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindNotFound          Kind = "NOT_FOUND"
	KindForbidden         Kind = "FORBIDDEN"
	KindConflict          Kind = "CONFLICT"
)

// Error is a domain rule violation. It is never retried automatically.
type Error struct {
	Kind    Kind
	Message string
	Details any // structured payload (hours breakdown, conflicting rows, …)
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a domain error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches a structured detail payload.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// KindOf returns the Kind of err, or "" if err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// AsDomain extracts the domain error from err, if any.
func AsDomain(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsRetryable reports whether err is a transient store failure worth a
// bounded retry at the transaction boundary. Domain errors never are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var de *Error
	if errors.As(err, &de) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "busy") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
