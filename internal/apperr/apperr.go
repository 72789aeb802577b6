// Package apperr holds error types shared by the session, reconcile and CLI
// layers.
package apperr

import "fmt"

// ValidationError reports input that is missing or malformed before any
// network call was made. Supports errors.As.
type ValidationError struct {
	Field string
	msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.msg)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, msg: msg}
}

// Validationf is NewValidationError with formatting.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, msg: fmt.Sprintf(format, args...)}
}
