package outbox

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for outbox persistence
type Repository interface {
	// Insert writes an entry, normally inside the transaction that produced it
	Insert(ctx context.Context, entry *Entry) error

	// GetPending locks and returns up to limit entries awaiting publication
	GetPending(ctx context.Context, limit int) ([]*Entry, error)

	// MarkPublished records that an entry made it onto the queue
	MarkPublished(ctx context.Context, id uuid.UUID) error

	// MarkFailed bumps the retry count, parking the entry once it hits MaxRetries
	MarkFailed(ctx context.Context, id uuid.UUID) error
}
