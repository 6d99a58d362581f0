// Package errors defines the domain's sentinel errors and the two error
// shapes that cross layer boundaries.
package errors

import (
	"errors"
	"fmt"
)

var (
	// Order errors
	ErrOrderNotFound          = errors.New("order not found")
	ErrOrderAlreadyPaid       = errors.New("order already paid")
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// Reseller errors
	ErrResellerNotFound = errors.New("reseller not found")
	ErrResellerInactive = errors.New("reseller is not active")

	// Bundle errors
	ErrBundleNotFound    = errors.New("bundle not found")
	ErrBundleUnavailable = errors.New("bundle is unavailable")

	// Ledger errors
	ErrDuplicateTransaction = errors.New("transaction already recorded")

	// Gateway errors
	ErrGatewayNotFound    = errors.New("payment gateway not found")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("request rejected by payment gateway")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrMalformedEvent     = errors.New("malformed webhook event")

	// Idempotency errors
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// Lock errors
	ErrLockAcquisitionFailed = errors.New("failed to acquire lock")
	ErrLockNotHeld           = errors.New("lock not held")
)

// DomainError carries a machine-readable code alongside the message, and
// optionally wraps a sentinel so errors.Is keeps working through it.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// ValidationError reports a single bad input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
