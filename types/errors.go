package types

import (
	"errors"
	"fmt"
)

var (
	// ErrCategoryUnresolved is wrapped by ConfigError when no category can be
	// found for a payment component.
	ErrCategoryUnresolved = errors.New("rentledger: no category resolvable")

	// ErrInvalidAmount classifies negative or non-positive amounts.
	ErrInvalidAmount = errors.New("rentledger: invalid amount")

	// ErrInvalidDates classifies a due date before the issue date.
	ErrInvalidDates = errors.New("rentledger: due date before issue date")
)

// ValidationError represents a caller-facing validation failure. No mutation
// is performed when one is returned.
type ValidationError struct {
	Field   string
	Message string
	// Err optionally classifies the failure for errors.Is.
	Err error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("rentledger: validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return e.Err }

// Invalid builds a ValidationError with a formatted message.
func Invalid(field, format string, args ...any) ValidationError {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Reject is like Invalid but classifies the failure as kind.
func Reject(kind error, field, format string, args ...any) ValidationError {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Err: kind}
}

// ConfigError reports a host configuration gap that makes an operation
// impossible, such as a missing category.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("rentledger: configuration error in %s: %s", e.Component, e.Message)
}

func (e ConfigError) Unwrap() error { return e.Err }
