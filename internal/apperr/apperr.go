// Package apperr defines the error kinds shared across services so the API
// layer can map failures to HTTP statuses in one place.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping and retry policy.
type Kind int

const (
	// KindUnknown is any unclassified failure; treated as a server error.
	KindUnknown Kind = iota
	// KindAuthentication covers bad credentials and disabled accounts.
	KindAuthentication
	// KindAuthorization covers role/ownership denials; never retried.
	KindAuthorization
	// KindValidation covers malformed or inconsistent input; never retried.
	KindValidation
	// KindNotFound covers references to absent entities.
	KindNotFound
	// KindDuplicate covers uniqueness violations.
	KindDuplicate
	// KindTransient covers retryable storage/network faults.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// FieldError ties a validation failure to a specific input field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// Error is the concrete error type carried between layers.
type Error struct {
	Kind   Kind
	Msg    string
	Fields []FieldError
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an error of the given kind.
func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Errorf builds an error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Validation builds a validation error with per-field details.
func Validation(msg string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Fields: fields}
}

// KindOf extracts the kind from an error chain; KindUnknown when absent.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// FieldsOf returns per-field details when err is a validation error.
func FieldsOf(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
