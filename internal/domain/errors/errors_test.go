package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_MessageIncludesCause(t *testing.T) {
	err := NewDomainError("reconcile_failed", "payment reconciliation failed", errors.New("gateway timeout"))
	assert.Equal(t, "payment reconciliation failed: gateway timeout", err.Error())
}

func TestDomainError_MessageWithoutCause(t *testing.T) {
	err := NewDomainError("invalid_state", "cannot settle order in current state", nil)
	assert.Equal(t, "cannot settle order in current state", err.Error())
}

// The controller maps wrapped sentinels to HTTP statuses with errors.Is, so
// DomainError must stay transparent to unwrapping.
func TestDomainError_SentinelSurvivesWrapping(t *testing.T) {
	wrapped := NewDomainError("gateway_rejected", "Invalid amount", ErrGatewayRejected)
	assert.ErrorIs(t, wrapped, ErrGatewayRejected)

	rewrapped := fmt.Errorf("initialize transaction: %w", wrapped)
	assert.ErrorIs(t, rewrapped, ErrGatewayRejected)

	var de *DomainError
	assert.True(t, errors.As(rewrapped, &de))
	assert.Equal(t, "gateway_rejected", de.Code)
}

func TestValidationError_NamesTheField(t *testing.T) {
	err := NewValidationError("customer_phone", "must be a phone number")
	assert.Equal(t, "validation failed for field customer_phone: must be a phone number", err.Error())
	assert.Equal(t, "customer_phone", err.Field)
}

// Clients switch on messages as a last resort, so no two sentinels may read
// the same.
func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrOrderNotFound, ErrOrderAlreadyPaid, ErrInvalidStateTransition,
		ErrResellerNotFound, ErrResellerInactive,
		ErrBundleNotFound, ErrBundleUnavailable,
		ErrDuplicateTransaction,
		ErrGatewayNotFound, ErrGatewayUnavailable, ErrGatewayRejected,
		ErrInvalidSignature, ErrMalformedEvent,
		ErrDuplicateIdempotencyKey,
		ErrLockAcquisitionFailed, ErrLockNotHeld,
	}

	seen := map[string]bool{}
	for _, err := range sentinels {
		assert.False(t, seen[err.Error()], "duplicate message: %s", err.Error())
		seen[err.Error()] = true
	}
}
