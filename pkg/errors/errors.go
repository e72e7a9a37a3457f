// Package errors provides structured error types for sheetslicer.
//
// Every failure in the slicing core is scoped to the operation that produced
// it and reported as a value. This package gives those values a
// machine-readable [Code] so callers (the CLI, the HTTP API, an external UI)
// can decide how to surface them without string matching.
//
// # Error Codes
//
// Codes follow the taxonomy of the core:
//   - INVALID_*: input validation failures (grid sizes, formats, paths)
//   - TEMPLATE_MISMATCH: a template was applied partially
//   - NETWORK_ERROR / TIMEOUT / PARSE_ERROR: card lookup failures
//   - EXPORT_IO: a single tile could not be written
//   - INTERNAL_*: unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidGrid, "columns must be >= 1, got %d", cols)
//	if errors.Is(err, errors.ErrCodeInvalidGrid) {
//	    // Ask the user for a different grid
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "search %q", query)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidGrid   Code = "INVALID_GRID"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Partial application
	ErrCodeTemplateMismatch Code = "TEMPLATE_MISMATCH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Card lookup errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"
	ErrCodeParse   Code = "PARSE_ERROR"

	// Export errors
	ErrCodeExportIO Code = "EXPORT_IO"

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

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
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

// InvalidGrid reports grid dimensions that cannot be sliced.
func InvalidGrid(format string, args ...any) *Error {
	return New(ErrCodeInvalidGrid, format, args...)
}

// Network wraps a transport failure (no connectivity, timeout, 5xx) of a card lookup.
func Network(cause error, format string, args ...any) *Error {
	return Wrap(ErrCodeNetwork, cause, format, args...)
}

// Parse wraps a malformed response from the card database.
func Parse(cause error, format string, args ...any) *Error {
	return Wrap(ErrCodeParse, cause, format, args...)
}

// ExportIO wraps a per-tile export failure.
func ExportIO(cause error, format string, args ...any) *Error {
	return Wrap(ErrCodeExportIO, cause, format, args...)
}

// TemplateMismatchWarning is returned when a template carries more tiles than
// the grid it is applied to. It is a warning: the template was still applied,
// minus the Dropped entries.
type TemplateMismatchWarning struct {
	TemplateTiles int // Tile count of the saved grid
	GridTiles     int // Tile count of the live grid
	Dropped       int // Entries that fell outside the live grid
}

// Error implements the error interface.
func (w *TemplateMismatchWarning) Error() string {
	return fmt.Sprintf("%s: template has %d tiles, grid has %d: dropped %d names",
		ErrCodeTemplateMismatch, w.TemplateTiles, w.GridTiles, w.Dropped)
}

// Code returns the error code for this warning type.
func (w *TemplateMismatchWarning) Code() Code {
	return ErrCodeTemplateMismatch
}
