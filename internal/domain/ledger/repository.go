package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for the append-only earnings ledger
type Repository interface {
	// Create appends a transaction. Returns
	// errors.ErrDuplicateTransaction when an entry of the same type already
	// exists for the order.
	Create(ctx context.Context, tx *Transaction) error

	// GetByOrderNumber retrieves all entries recorded for an order
	GetByOrderNumber(ctx context.Context, orderNumber string) ([]*Transaction, error)

	// ListByReseller retrieves a reseller's entries, newest first
	ListByReseller(ctx context.Context, resellerID uuid.UUID, limit, offset int) ([]*Transaction, error)
}
