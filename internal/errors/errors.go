// Package errors provides domain-specific error types and sentinel errors
// for the portal client.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates the backend has no record for the identifier.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates the caller provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition indicates a filter level was set before the level above it.
	ErrInvalidTransition = errors.New("invalid filter transition")

	// ErrMalformedResponse indicates the backend answered with an unexpected shape.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrStaleResponse indicates a response arrived after a newer request superseded it.
	ErrStaleResponse = errors.New("stale response discarded")

	// ErrReportNotReady indicates there is no open profile to export.
	ErrReportNotReady = errors.New("report not ready")

	// ErrAssetBlocked indicates a report image could not be loaded or decoded.
	ErrAssetBlocked = errors.New("report image unavailable")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")
)

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput reports whether err is or wraps ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsMalformed reports whether err is or wraps ErrMalformedResponse.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// IsStale reports whether err is or wraps ErrStaleResponse.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleResponse)
}

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Unwrap makes every ValidationError match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// BackendError represents a failed call to the records backend.
type BackendError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("backend error (url=%s, status=%d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("backend error (url=%s): %v", e.URL, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError creates a new backend error.
func NewBackendError(url string, statusCode int, err error) *BackendError {
	return &BackendError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}
