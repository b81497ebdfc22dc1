// Package apperr defines the service-level error taxonomy. Workflows return
// *Error values tagged with a Kind; the HTTP boundary maps kinds to status
// codes. Anything that is not an *Error is treated as an internal failure.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an expected, user-facing failure.
type Kind int

const (
	Internal Kind = iota
	DuplicateResource
	InvalidPayload
	NotFound
)

// Code returns the stable identifying code for the kind.
func (k Kind) Code() string {
	switch k {
	case DuplicateResource:
		return "DUPLICATE_RESOURCE"
	case InvalidPayload:
		return "INVALID_PAYLOAD"
	case NotFound:
		return "NOT_FOUND"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error is a tagged domain error carrying a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the Kind of err, or Internal when err carries no taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsKind reports whether err is tagged with the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// MessageOf returns the user-facing message of err, or a generic message for
// untagged errors so internal details never leak to callers.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
