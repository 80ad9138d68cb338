// Package errors provides structured error types for the Lamina application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - DUPLICATE_*/UNKNOWN_*: validation failures on stackup edits
//   - *_NOT_FOUND: resource not found in the layout store
//   - EXTENT_*/TRANSFORM_*: geometry and transform operation failures
//   - INTERNAL_*: unexpected internal errors
//
// # Usage
//
//	err := errors.Newf(errors.ErrCodeDuplicateName, "layer %q exists", name)
//	if errors.Is(err, errors.ErrCodeDuplicateName) {
//	    // Handle duplicate-name rejection
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(origErr, errors.ErrCodeTransformAbort, "flip failed")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Stackup edit validation errors
	ErrCodeDuplicateName   Code = "DUPLICATE_NAME"
	ErrCodeUnknownMaterial Code = "UNKNOWN_MATERIAL"
	ErrCodeInvalidLayer    Code = "INVALID_LAYER"
	ErrCodeInvalidMode     Code = "INVALID_MODE"

	// Resource not found errors
	ErrCodeLayerNotFound Code = "LAYER_NOT_FOUND"
	ErrCodeNetNotFound   Code = "NET_NOT_FOUND"
	ErrCodeCellNotFound  Code = "CELL_NOT_FOUND"
	ErrCodeFileNotFound  Code = "FILE_NOT_FOUND"

	// Geometry and transform errors
	ErrCodeExtentEmpty       Code = "EXTENT_EMPTY"
	ErrCodeInvalidExtentType Code = "INVALID_EXTENT_TYPE"
	ErrCodeTransformAbort    Code = "TRANSFORM_ABORT"
	ErrCodeInvalidPolygon    Code = "INVALID_POLYGON"

	// I/O errors
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeStore         Code = "STORE_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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

// New creates a new Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf creates a new Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(cause error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// Wrapf creates a new Error wrapping an existing error, with a formatted
// message.
func Wrapf(cause error, code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
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
		return e.Message
	}
	return err.Error()
}
