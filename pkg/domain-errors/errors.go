// Package domainerrors provides coded errors that cross module boundaries.
// Services translate store sentinels into these; transport maps codes to HTTP
// statuses. Callers branch on the code, never on the message.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error kind.
type Code string

const (
	// CodeBadRequest covers malformed requests (unparseable ids, bad JSON).
	CodeBadRequest Code = "bad_request"
	// CodeValidation covers well-formed requests with invalid content
	// (empty rejection reason, unknown region).
	CodeValidation Code = "validation"
	// CodeInvariantViolation marks a domain invariant broken inside a model
	// constructor or transition. Services usually re-code it before it
	// reaches a caller.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeUnauthorized means the caller is not authenticated.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden means the caller's role or region scope does not cover
	// the target entity.
	CodeForbidden Code = "forbidden"
	// CodeNotFound means the referenced entity does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict means a precondition status no longer holds, typically
	// because another reviewer acted first.
	CodeConflict Code = "conflict"
	// CodeUnavailable means a backing store is unreachable; the operation is
	// safe to retry under its compare-and-set precondition.
	CodeUnavailable Code = "unavailable"
	// CodeInternal is the fallback for unexpected failures.
	CodeInternal Code = "internal"
)

// Error carries a code, a human-readable message and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message while keeping it in the chain.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from the chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf extracts the human-readable message, defaulting to a generic one
// so internal details never leak through transport.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
