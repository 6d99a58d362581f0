package reseller

import (
	"math/rand"
	"time"

	"github.com/datavend/backend/internal/domain/errors"
	"github.com/google/uuid"
)

type ResellerStatus string

const (
	StatusPending   ResellerStatus = "pending"
	StatusActive    ResellerStatus = "active"
	StatusSuspended ResellerStatus = "suspended"
)

// Reseller sells data bundles under a referral code and earns the bundle
// commission on every settled order. The accumulator fields mirror database
// columns that are only ever moved by atomic increments, never by writing a
// value computed in memory.
type Reseller struct {
	ID            uuid.UUID
	BusinessName  string
	Email         string
	Phone         string
	ReferralCode  string
	Status        ResellerStatus
	TotalEarnings int64 // minor units
	TotalSales    int64 // minor units
	TotalOrders   int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewReseller(businessName, email, phone string) (*Reseller, error) {
	if businessName == "" {
		return nil, errors.NewValidationError("business_name", "cannot be empty")
	}
	if email == "" {
		return nil, errors.NewValidationError("email", "cannot be empty")
	}
	if phone == "" {
		return nil, errors.NewValidationError("phone", "cannot be empty")
	}

	now := time.Now()
	return &Reseller{
		ID:           uuid.New(),
		BusinessName: businessName,
		Email:        email,
		Phone:        phone,
		ReferralCode: NewReferralCode(),
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

const referralCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewReferralCode generates an 8-character storefront code. Ambiguous
// characters (0/O, 1/I) are excluded. Uniqueness is enforced by the database.
func NewReferralCode() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = referralCharset[rand.Intn(len(referralCharset))]
	}
	return string(b)
}

func (r *Reseller) IsActive() bool {
	return r.Status == StatusActive
}

func (r *Reseller) Activate() error {
	if r.Status == StatusActive {
		return nil
	}
	r.Status = StatusActive
	r.UpdatedAt = time.Now()
	return nil
}

func (r *Reseller) Suspend() error {
	if r.Status != StatusActive {
		return errors.ErrResellerInactive
	}
	r.Status = StatusSuspended
	r.UpdatedAt = time.Now()
	return nil
}
