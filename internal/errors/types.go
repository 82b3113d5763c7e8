package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure into a stable, caller-facing category.
type Kind string

const (
	KindInvalidInput Kind = "INVALID_INPUT"
	KindNotAvailable Kind = "NOT_AVAILABLE"
	KindTimeout      Kind = "TIMEOUT"
	KindBackendError Kind = "BACKEND_ERROR"
	KindUnknown      Kind = "UNKNOWN"
)

// AppError represents a structured error for the application
type AppError struct {
	Kind       Kind   `json:"errorKind"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Err        error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewInvalidInputError creates a new invalid input error (400)
func NewInvalidInputError(message string) *AppError {
	return &AppError{
		Kind:       KindInvalidInput,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewNotAvailableError creates a new engine-not-available error (503)
func NewNotAvailableError(message string) *AppError {
	return &AppError{
		Kind:       KindNotAvailable,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
	}
}

// NewTimeoutError creates a new timeout error (500)
func NewTimeoutError(message string, err error) *AppError {
	return &AppError{
		Kind:       KindTimeout,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewBackendError creates a new engine-reported error (500)
func NewBackendError(message string, err error) *AppError {
	return &AppError{
		Kind:       KindBackendError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnknownError creates a new uncategorized error (500)
func NewUnknownError(message string, err error) *AppError {
	return &AppError{
		Kind:       KindUnknown,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// From converts an arbitrary error into an *AppError. An *AppError is
// returned unchanged, a deadline expiry becomes a TIMEOUT, anything
// else becomes UNKNOWN.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("operation timed out", err)
	}
	return NewUnknownError(err.Error(), err)
}

// KindOf returns the Kind of an error, or KindUnknown for plain errors.
func KindOf(err error) Kind {
	return From(err).Kind
}
