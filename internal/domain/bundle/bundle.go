package bundle

import (
	"time"

	"github.com/datavend/backend/internal/domain/errors"
	"github.com/google/uuid"
)

type Network string

const (
	NetworkMTN     Network = "mtn"
	NetworkGlo     Network = "glo"
	NetworkAirtel  Network = "airtel"
	Network9Mobile Network = "9mobile"
)

// Bundle is a catalog entry for a mobile data plan. BasePrice is what the
// platform pays the network, Commission is the reseller margin; the customer
// pays the sum. Amounts are in minor units.
type Bundle struct {
	ID           uuid.UUID
	Name         string
	Network      Network
	DataMB       int
	ValidityDays int
	BasePrice    int64
	Commission   int64
	Currency     string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SellingPrice is the amount charged to the customer per unit
func (b *Bundle) SellingPrice() int64 {
	return b.BasePrice + b.Commission
}

// Validate checks catalog invariants before a bundle is sold
func (b *Bundle) Validate() error {
	if b.Name == "" {
		return errors.NewValidationError("name", "cannot be empty")
	}
	if b.DataMB <= 0 {
		return errors.NewValidationError("data_mb", "must be greater than 0")
	}
	if b.ValidityDays <= 0 {
		return errors.NewValidationError("validity_days", "must be greater than 0")
	}
	if b.BasePrice <= 0 {
		return errors.NewValidationError("base_price", "must be greater than 0")
	}
	if b.Commission < 0 {
		return errors.NewValidationError("commission", "cannot be negative")
	}
	switch b.Network {
	case NetworkMTN, NetworkGlo, NetworkAirtel, Network9Mobile:
	default:
		return errors.NewValidationError("network", "unknown network")
	}
	return nil
}
