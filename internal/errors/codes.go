// Package errors defines the error taxonomy for note and reminder
// operations. Every code is recovered at the boundary of the operation
// that raised it and translated into a user-facing message; none are
// fatal to the process.
package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for bot operations.
type ErrorCode string

const (
	// ErrCodeEmptyInput indicates blank note text after trimming.
	ErrCodeEmptyInput ErrorCode = "EMPTY_INPUT"
	// ErrCodeNotFound indicates a note id that does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeEmptyQuery indicates a blank search query.
	ErrCodeEmptyQuery ErrorCode = "EMPTY_QUERY"
	// ErrCodeInvalidSelection indicates malformed or unmatched numeric input.
	ErrCodeInvalidSelection ErrorCode = "INVALID_SELECTION"
	// ErrCodeInsufficientInput indicates too few notes for analysis.
	ErrCodeInsufficientInput ErrorCode = "INSUFFICIENT_INPUT"
	// ErrCodeConfigurationMissing indicates absent endpoint credentials.
	ErrCodeConfigurationMissing ErrorCode = "CONFIGURATION_MISSING"
	// ErrCodeUpstreamFailure indicates a non-success upstream response.
	ErrCodeUpstreamFailure ErrorCode = "UPSTREAM_FAILURE"
	// ErrCodeTransportFailure indicates a network-level error.
	ErrCodeTransportFailure ErrorCode = "TRANSPORT_FAILURE"
)

// BotError represents a structured error for bot operations.
type BotError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *BotError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *BotError) Unwrap() error {
	return e.Cause
}

// GetCode returns the error code.
func (e *BotError) GetCode() ErrorCode {
	return e.Code
}

// Convenience constructors for common error types.

// EmptyInput creates an empty input error.
func EmptyInput(msg string) *BotError {
	return &BotError{Code: ErrCodeEmptyInput, Message: msg}
}

// NotFound creates a not found error for a note id.
func NotFound(noteID int) *BotError {
	return &BotError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("note not found: %d", noteID),
	}
}

// EmptyQuery creates an empty query error.
func EmptyQuery() *BotError {
	return &BotError{Code: ErrCodeEmptyQuery, Message: "search query is empty"}
}

// InvalidSelection creates an invalid selection error.
func InvalidSelection(msg string) *BotError {
	return &BotError{Code: ErrCodeInvalidSelection, Message: msg}
}

// InsufficientInput creates an insufficient input error.
func InsufficientInput(msg string) *BotError {
	return &BotError{Code: ErrCodeInsufficientInput, Message: msg}
}

// ConfigurationMissing creates a configuration missing error.
func ConfigurationMissing(msg string) *BotError {
	return &BotError{Code: ErrCodeConfigurationMissing, Message: msg}
}

// UpstreamFailure creates an upstream failure error.
func UpstreamFailure(msg string, cause error) *BotError {
	return &BotError{Code: ErrCodeUpstreamFailure, Message: msg, Cause: cause}
}

// TransportFailure creates a transport failure error.
func TransportFailure(msg string, cause error) *BotError {
	return &BotError{Code: ErrCodeTransportFailure, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *BotError {
	return &BotError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if botErr, ok := err.(*BotError); ok {
		return botErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a BotError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if botErr, ok := err.(*BotError); ok {
		return botErr.Code
	}
	return defaultCode
}
