package rentledger

import (
	"errors"
	"fmt"

	"github.com/xraph/rentledger/allocation"
	"github.com/xraph/rentledger/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("rentledger: not found")
	ErrAlreadyExists = errors.New("rentledger: already exists")
	ErrInvalidInput  = errors.New("rentledger: invalid input")
	ErrConflict      = errors.New("rentledger: concurrent modification")

	// Invoice errors
	ErrInvoiceNotFound    = errors.New("rentledger: invoice not found")
	ErrInvoiceHasPayments = errors.New("rentledger: invoice has payments; remove them first")
	ErrInvalidDates       = types.ErrInvalidDates

	// Payment errors
	ErrPaymentNotFound        = errors.New("rentledger: payment not found")
	ErrBatchNotFound          = errors.New("rentledger: batch not found")
	ErrPaymentReversed        = errors.New("rentledger: payment already reversed")
	ErrPaymentUnlinked        = errors.New("rentledger: payment is not linked to an invoice")
	ErrInvalidAmount          = allocation.ErrInvalidAmount
	ErrAmountExceedsRemaining = allocation.ErrAmountExceedsRemaining
	ErrNothingToAllocate      = allocation.ErrNothingToAllocate

	// Recurring errors
	ErrTemplateNotFound = errors.New("rentledger: recurring template not found")
	ErrTemplateInactive = errors.New("rentledger: recurring template is inactive")

	// Configuration errors
	ErrCategoryUnresolved = types.ErrCategoryUnresolved

	// Store errors
	ErrStoreNotReady     = errors.New("rentledger: store not ready")
	ErrStoreClosed       = errors.New("rentledger: store is closed")
	ErrTransactionFailed = errors.New("rentledger: transaction failed")
	ErrMigrationFailed   = errors.New("rentledger: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError = types.ValidationError

// ConfigError reports a host configuration gap, such as a missing category.
type ConfigError = types.ConfigError

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "rentledger: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("rentledger: %d errors occurred: %v", len(e.Errors), e.Errors[0])
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// ErrOrNil returns e when it holds errors, nil otherwise.
func (e MultiError) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvoiceNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrBatchNotFound) ||
		errors.Is(err, ErrTemplateNotFound)
}

// IsValidation returns true if the error is a caller-facing validation failure.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsConfigError returns true if the error reports a host configuration gap.
func IsConfigError(err error) bool {
	var ce ConfigError
	return errors.As(err, &ce)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
