package bundle

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for catalog reads. The catalog itself is
// managed out of band (seed migrations); the API only sells from it.
type Repository interface {
	// GetByID retrieves a bundle by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Bundle, error)

	// ListActive lists bundles currently on sale
	ListActive(ctx context.Context) ([]*Bundle, error)
}
