package core

import "fmt"

// ValidationError reports bad input shape or range at a mutation boundary.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ReferentialIntegrityError reports a reference that is missing or that
// blocks a delete.
type ReferentialIntegrityError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("referential integrity violation on %s %s: %s", e.Entity, e.ID, e.Reason)
}

// UnknownAccount reports a reference to an account that does not exist.
func UnknownAccount(id string) *ReferentialIntegrityError {
	return &ReferentialIntegrityError{Entity: "account", ID: id, Reason: "does not exist"}
}
