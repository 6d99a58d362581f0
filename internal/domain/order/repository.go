package order

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for order persistence
type Repository interface {
	// Create creates a new order
	Create(ctx context.Context, order *Order) error

	// GetByID retrieves an order by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// GetByOrderNumber retrieves an order by its gateway reference
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)

	// MarkPaid persists a paid transition, guarded on the row still being
	// pending. Returns false when another writer settled the order first.
	MarkPaid(ctx context.Context, order *Order) (bool, error)

	// Update updates an existing order
	Update(ctx context.Context, order *Order) error

	// List lists orders with filters
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
}

// ListFilter defines filters for listing orders
type ListFilter struct {
	ResellerID    *uuid.UUID
	Status        *Status
	PaymentStatus *PaymentStatus
	Limit         int
	Offset        int
}
