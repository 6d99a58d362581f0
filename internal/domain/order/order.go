package order

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/datavend/backend/internal/domain/errors"
	"github.com/google/uuid"
)

// Status represents the fulfillment status of an order
type Status string

const (
	StatusAccepted   Status = "accepted"
	StatusProcessing Status = "processing"
	StatusDelivered  Status = "delivered"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

// PaymentStatus represents the payment status in the state machine
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Order represents a reseller's purchase of a data bundle on behalf of a customer.
// Amounts are stored in the smallest currency unit (kobo for NGN).
type Order struct {
	ID          uuid.UUID
	OrderNumber string
	// ResellerID is nil for orders placed outside a reseller storefront;
	// those settle without crediting anyone.
	ResellerID     *uuid.UUID
	BundleID       uuid.UUID
	CustomerPhone  string
	Quantity       int
	Amount         int64 // total selling price, minor units
	Commission     int64 // reseller margin, minor units
	Currency       string
	Status         Status
	PaymentStatus  PaymentStatus
	PaymentChannel *string
	GatewayTxID    *int64
	PaidAt         *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewOrder creates a new order in the accepted/pending state.
func NewOrder(
	resellerID uuid.UUID,
	bundleID uuid.UUID,
	customerPhone string,
	quantity int,
	amount int64,
	commission int64,
	currency string,
) (*Order, error) {
	if customerPhone == "" {
		return nil, errors.NewValidationError("customer_phone", "cannot be empty")
	}
	if quantity < 1 {
		return nil, errors.NewValidationError("quantity", "must be at least 1")
	}
	if amount <= 0 {
		return nil, errors.NewValidationError("amount", "must be greater than 0")
	}
	if commission < 0 {
		return nil, errors.NewValidationError("commission", "cannot be negative")
	}
	if commission > amount {
		return nil, errors.NewValidationError("commission", "cannot exceed order amount")
	}
	if len(currency) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}

	now := time.Now()
	return &Order{
		ID:            uuid.New(),
		OrderNumber:   NewOrderNumber(),
		ResellerID:    &resellerID,
		BundleID:      bundleID,
		CustomerPhone: customerPhone,
		Quantity:      quantity,
		Amount:        amount,
		Commission:    commission,
		Currency:      currency,
		Status:        StatusAccepted,
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// NewOrderNumber generates a reference of the form ORD-981152373. The order
// number doubles as the gateway transaction reference, so it must stay short
// and digit-only after the prefix. Uniqueness is enforced by the database.
func NewOrderNumber() string {
	return fmt.Sprintf("ORD-%d", 100_000_000+rand.Intn(900_000_000))
}

// CanTransitionTo checks if the payment status can move to the given status
func (o *Order) CanTransitionTo(newStatus PaymentStatus) bool {
	transitions := map[PaymentStatus][]PaymentStatus{
		PaymentPending: {
			PaymentPaid,
			PaymentFailed,
		},
		PaymentPaid: {
			PaymentRefunded,
		},
		PaymentFailed:   {}, // Terminal state
		PaymentRefunded: {}, // Terminal state
	}

	allowed, exists := transitions[o.PaymentStatus]
	if !exists {
		return false
	}

	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo moves the payment status through the state machine
func (o *Order) TransitionTo(newStatus PaymentStatus) error {
	if !o.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition payment from "+string(o.PaymentStatus)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}

	o.PaymentStatus = newStatus
	o.UpdatedAt = time.Now()
	return nil
}

// MarkPaid settles the order: payment becomes paid and fulfillment starts.
func (o *Order) MarkPaid(gatewayTxID int64, channel string) error {
	if o.PaymentStatus == PaymentPaid {
		return errors.ErrOrderAlreadyPaid
	}
	if err := o.TransitionTo(PaymentPaid); err != nil {
		return err
	}
	now := time.Now()
	o.Status = StatusProcessing
	o.GatewayTxID = &gatewayTxID
	o.PaymentChannel = &channel
	o.PaidAt = &now
	return nil
}

// MarkPaymentFailed records a failed or abandoned charge
func (o *Order) MarkPaymentFailed() error {
	if err := o.TransitionTo(PaymentFailed); err != nil {
		return err
	}
	o.Status = StatusFailed
	return nil
}

// MarkDelivered records successful bundle delivery to the customer
func (o *Order) MarkDelivered() error {
	if o.Status != StatusProcessing {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot deliver order in status "+string(o.Status),
			errors.ErrInvalidStateTransition,
		)
	}
	o.Status = StatusDelivered
	o.UpdatedAt = time.Now()
	return nil
}

// MarkRefunded reverses a settled order
func (o *Order) MarkRefunded() error {
	if err := o.TransitionTo(PaymentRefunded); err != nil {
		return err
	}
	o.Status = StatusRefunded
	return nil
}

// IsPaid reports whether the order has been settled
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentPaid
}

// IsTerminal checks if the payment is in a terminal state
func (o *Order) IsTerminal() bool {
	return o.PaymentStatus == PaymentFailed || o.PaymentStatus == PaymentRefunded
}
