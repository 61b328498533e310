// Package errs provides structured, machine-readable error kinds for the
// wallet core. Callers map codes to their transport; the engines never
// coerce a failure into a generic success.
package errs

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeValidation covers malformed or out-of-range input.
	CodeValidation Code = "VALIDATION"
	// CodeNotFound covers absent entities or entities not owned by the caller.
	CodeNotFound Code = "NOT_FOUND"
	// CodeUnauthorized covers the wrong guardian or owner acting on an entity.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeInsufficientFunds covers a balance below the required amount.
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	// CodeInvalidStateTransition covers operations attempted from a state
	// that forbids them, such as paying an already-paid bill.
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
	// CodeInternal covers storage and unit-of-work failures.
	CodeInternal Code = "INTERNAL"
)

// Error carries a code alongside a human-readable message and an optional
// wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two errs.Errors by code so sentinel-style comparisons work
// with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// New returns a coded error with a fixed message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf returns a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns a coded error wrapping an underlying cause.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal
// for errors that did not originate in the core.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
