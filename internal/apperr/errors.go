// Package apperr defines the error kinds shared across the service layer.
//
// Validation, conflict and not-found errors are recoverable and surfaced to
// callers as-is. Store errors are infrastructure faults: they carry the
// offending statement for logging but must not leak it to clients.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a missing/empty required field, a type coercion
// failure or a constrained value out of range.
type ValidationError struct {
	Message string
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) > 0 {
		return e.Message + ": " + strings.Join(e.Details, "; ")
	}
	return e.Message
}

// Validation creates a ValidationError with a formatted message.
func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports a duplicate unique key, a deletion blocked by a
// referential guard, or an operation on an entity in the wrong state.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// Conflict creates a ConflictError with a formatted message.
func Conflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports that an id or key did not resolve.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// NotFound creates a NotFoundError for the named resource.
func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// StoreError reports a statement execution or snapshot failure. Statement is
// kept for logs only.
type StoreError struct {
	Statement string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation failed: %v", e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsStore reports whether err is a StoreError.
func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
