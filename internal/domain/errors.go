package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation error")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrRemoteWrite         = errors.New("remote write failed")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// RemoteWriteError reports a remote call that did not return 2xx.
// StatusCode is zero when the request never produced a response.
type RemoteWriteError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *RemoteWriteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("remote write %s %s: %v", e.Method, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("remote write %s %s: status %d", e.Method, e.Endpoint, e.StatusCode)
}

// Is reports ErrRemoteWrite so callers can match the category with errors.Is.
func (e *RemoteWriteError) Is(target error) bool { return target == ErrRemoteWrite }

func (e *RemoteWriteError) Unwrap() error { return e.Err }
