// Package errors provides the coded error types used across idphoto.
//
// Codes follow the failure taxonomy of the print pipeline:
//   - VALIDATION: a request was rejected before any work began
//     (for example an export with a total demand of zero)
//   - DECODE: a source or frame raster could not be decoded
//   - SERVICE: the external replacement service failed for one image
//   - PRECONDITION: a caller guarantee was violated (a size that does not
//     fit the printable area)
//
// # Usage
//
//	err := errors.New(errors.ErrCodeValidation, "total quantity is zero")
//	if errors.Is(err, errors.ErrCodeValidation) {
//	    // reject the export
//	}
//
//	err = errors.Wrap(errors.ErrCodeDecode, origErr, "decode %s", name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the print pipeline.
const (
	ErrCodeValidation   Code = "VALIDATION"
	ErrCodeDecode       Code = "DECODE"
	ErrCodeService      Code = "SERVICE"
	ErrCodePrecondition Code = "PRECONDITION"

	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeInternal     Code = "INTERNAL_ERROR"
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

// Validation returns a VALIDATION error.
func Validation(format string, args ...any) *Error {
	return New(ErrCodeValidation, format, args...)
}

// Decode wraps cause as a DECODE error.
func Decode(cause error, format string, args ...any) *Error {
	return Wrap(ErrCodeDecode, cause, format, args...)
}

// Service wraps cause as a SERVICE error.
func Service(cause error, format string, args ...any) *Error {
	return Wrap(ErrCodeService, cause, format, args...)
}

// Is reports whether err has the given error code.
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
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
