// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid configuration and contract violations
//   - Data/Resource errors (200-299): Event sources and external collaborators
//   - Indicator errors (300-399): Technical indicator calculation errors
//   - Strategy errors (400-499): Strategy lookup, configuration and runtime errors
//   - Broker errors (500-599): Order sizing and fill application errors
//   - Backtest errors (600-699): Backtest run errors
//   - Journal errors (700-799): Journal sink errors
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidSpread, "spread must not be negative")
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeSourceReadFailed, "failed to read events", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeEventOutOfOrder) { ... }
//
// InsufficientHistoryError is the one recoverable condition in the simulation core: it is
// raised by indicators when a window is too short and consumed by the strategy runtime.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// InsufficientHistoryError is raised when a computation needs a longer observation
// window than the one it was given. MinSize is the window length that would satisfy it.
type InsufficientHistoryError struct {
	MinSize int    // Minimum window length required
	Actual  int    // Window length that was available
	Message string // Human-readable message
}

// NewInsufficientHistoryError creates a new InsufficientHistoryError.
func NewInsufficientHistoryError(minSize, actual int) *InsufficientHistoryError {
	return &InsufficientHistoryError{
		MinSize: minSize,
		Actual:  actual,
		Message: fmt.Sprintf("insufficient history: need %d observations, got %d", minSize, actual),
	}
}

// NewInsufficientHistoryErrorf creates a new InsufficientHistoryError with a formatted message.
func NewInsufficientHistoryErrorf(minSize, actual int, format string, args ...any) *InsufficientHistoryError {
	return &InsufficientHistoryError{
		MinSize: minSize,
		Actual:  actual,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *InsufficientHistoryError) Error() string {
	return e.Message
}

// IsInsufficientHistoryError checks if an error is an InsufficientHistoryError.
// It uses errors.As to check the error chain.
func IsInsufficientHistoryError(err error) bool {
	var insufficientErr *InsufficientHistoryError

	return errors.As(err, &insufficientErr)
}

// AsInsufficientHistoryError returns the first InsufficientHistoryError in err's chain.
func AsInsufficientHistoryError(err error) (*InsufficientHistoryError, bool) {
	var insufficientErr *InsufficientHistoryError
	if errors.As(err, &insufficientErr) {
		return insufficientErr, true
	}

	return nil, false
}
