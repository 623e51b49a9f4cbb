// Package errors provides structured error types for the regionkit
// application surfaces.
//
// The engine packages use plain sentinel errors; this package maps them to
// machine-readable codes so the CLI and the HTTP surface report failures
// consistently.
//
// # Error Codes
//
// Codes cover the engine's taxonomy: structural errors (NOT_FOUND,
// ALREADY_LINKED, CYCLE_DETECTED) reject a mutation synchronously and
// leave the graphs unchanged; DEGENERATE_MASK is the one scope-resolution
// anomaly surfaced to the user; EMPTY_SCOPE exists as a code for
// reporting but plans recover from it automatically.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNotFound, "unknown region %q", id)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // handle
//	}
//
//	// Wrap engine errors
//	err := errors.Wrap(errors.ErrCodeDegenerateMask, cause, "refine %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the engine taxonomy and the application surfaces.
const (
	// Structural errors - the mutating call is rejected, graphs unchanged.
	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeAlreadyLinked Code = "ALREADY_LINKED"
	ErrCodeCycleDetected Code = "CYCLE_DETECTED"

	// Scope resolution.
	ErrCodeEmptyScope     Code = "EMPTY_SCOPE"
	ErrCodeDegenerateMask Code = "DEGENERATE_MASK"

	// Application surfaces.
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeBackend       Code = "BACKEND_ERROR"
	ErrCodeInternal      Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err carries the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
