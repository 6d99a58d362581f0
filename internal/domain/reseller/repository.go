package reseller

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for reseller persistence
type Repository interface {
	// Create creates a new reseller
	Create(ctx context.Context, reseller *Reseller) error

	// GetByID retrieves a reseller by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Reseller, error)

	// GetByReferralCode retrieves a reseller by storefront code
	GetByReferralCode(ctx context.Context, code string) (*Reseller, error)

	// IncrementTotals credits a settled order to the reseller's accumulators
	// with a single atomic SQL increment (earnings += commission,
	// sales += amount, orders += 1).
	IncrementTotals(ctx context.Context, id uuid.UUID, earnings, sales int64) error

	// Update updates an existing reseller
	Update(ctx context.Context, reseller *Reseller) error
}
