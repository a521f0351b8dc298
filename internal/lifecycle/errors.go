package lifecycle

import (
	"errors"
	"fmt"
)

// ErrorKind classifies task lifecycle failures for callers
type ErrorKind int

const (
	// ErrorKindUnknown - unclassified failure
	ErrorKindUnknown ErrorKind = iota

	// ErrorKindInvalidTransition - requested status change not permitted from
	// the current status; state is left untouched
	ErrorKindInvalidTransition

	// ErrorKindValidationFailed - a required field is missing or malformed for
	// the requested transition
	ErrorKindValidationFailed

	// ErrorKindNotFound - task or profile does not exist in the store
	ErrorKindNotFound

	// ErrorKindStoreUnavailable - the underlying store call failed; no partial
	// writes were made
	ErrorKindStoreUnavailable
)

// String returns a stable machine-readable kind name
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindInvalidTransition:
		return "invalid_transition"
	case ErrorKindValidationFailed:
		return "validation_failed"
	case ErrorKindNotFound:
		return "not_found"
	case ErrorKindStoreUnavailable:
		return "store_unavailable"
	default:
		return "unknown"
	}
}

// Error is the typed result returned for every rejected operation in the
// lifecycle core. All errors crossing the service boundary are of this type.
type Error struct {
	Kind    ErrorKind
	Message string
	Field   string // set for validation failures: the missing/invalid field
	Cause   error  // underlying store error, if any
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %q)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// InvalidTransition builds a rejected-transition error
func InvalidTransition(from, action string) *Error {
	return &Error{
		Kind:    ErrorKindInvalidTransition,
		Message: fmt.Sprintf("cannot %s a task in status %q", action, from),
	}
}

// ValidationFailed builds a validation error naming the offending field
func ValidationFailed(field, message string) *Error {
	return &Error{
		Kind:    ErrorKindValidationFailed,
		Message: message,
		Field:   field,
	}
}

// NotFound builds a missing-entity error
func NotFound(entity, id string) *Error {
	return &Error{
		Kind:    ErrorKindNotFound,
		Message: fmt.Sprintf("%s %s not found", entity, id),
	}
}

// StoreUnavailable wraps an underlying store failure
func StoreUnavailable(op string, cause error) *Error {
	return &Error{
		Kind:    ErrorKindStoreUnavailable,
		Message: fmt.Sprintf("store operation %s failed", op),
		Cause:   cause,
	}
}

// KindOf extracts the lifecycle error kind, or ErrorKindUnknown for foreign errors
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrorKindUnknown
}

// IsKind reports whether err is a lifecycle error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
