package domain

import "fmt"

// ValidationError signals malformed input on a specific field. Callers can
// render it inline next to the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a field-level validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError signals a reference to an enrollment, training or campaign
// that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewNotFoundError creates a not-found error for a resource reference
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// DomainError signals a business-rule violation: temporal ordering,
// cross-campaign mismatch, invalid resignation date, premature result
// recording. Distinguished from NotFoundError so UIs can choose between
// "fix your input" and "this no longer exists".
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a business-rule violation error
func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}
