package ledger

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/datavend/backend/internal/domain/errors"
	"github.com/google/uuid"
)

// EntryType classifies a ledger transaction
type EntryType string

const (
	EntryOrderPayment EntryType = "order_payment"
	EntryOrderRefund  EntryType = "order_refund"
)

// EntryStatus is the settlement state of a ledger transaction
type EntryStatus string

const (
	StatusCompleted EntryStatus = "completed"
	StatusReversed  EntryStatus = "reversed"
)

// Transaction is an append-only financial record of a payment event. An order
// carries at most one entry per type; the database enforces that with a unique
// index on (order_number, entry_type), which is what makes replayed webhooks
// safe even when a crash lands between the order update and the ledger write.
type Transaction struct {
	ID                uuid.UUID
	TransactionNumber string
	OrderNumber       string
	// ResellerID is nil when the settled order has no owning reseller.
	ResellerID  *uuid.UUID
	EntryType   EntryType
	Amount      int64 // minor units
	Currency    string
	Status      EntryStatus
	Provider    string
	ProviderRef string
	CreatedAt   time.Time
}

// NewOrderPayment records a settled charge against an order.
func NewOrderPayment(orderNumber string, resellerID *uuid.UUID, amount int64, currency, provider, providerRef string) (*Transaction, error) {
	if orderNumber == "" {
		return nil, errors.NewValidationError("order_number", "cannot be empty")
	}
	if amount <= 0 {
		return nil, errors.NewValidationError("amount", "must be greater than 0")
	}
	if len(currency) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	if provider == "" {
		return nil, errors.NewValidationError("provider", "cannot be empty")
	}

	return &Transaction{
		ID:                uuid.New(),
		TransactionNumber: NewTransactionNumber(),
		OrderNumber:       orderNumber,
		ResellerID:        resellerID,
		EntryType:         EntryOrderPayment,
		Amount:            amount,
		Currency:          currency,
		Status:            StatusCompleted,
		Provider:          provider,
		ProviderRef:       providerRef,
		CreatedAt:         time.Now(),
	}, nil
}

// NewOrderRefund records the reversal of a settled charge.
func NewOrderRefund(orderNumber string, resellerID *uuid.UUID, amount int64, currency, provider, providerRef string) (*Transaction, error) {
	t, err := NewOrderPayment(orderNumber, resellerID, amount, currency, provider, providerRef)
	if err != nil {
		return nil, err
	}
	t.EntryType = EntryOrderRefund
	t.Status = StatusReversed
	return t, nil
}

// NewTransactionNumber generates a ledger reference of the form
// TXN-1756080000000123. Millisecond timestamp plus a random suffix keeps the
// numbers roughly sortable; the database enforces uniqueness.
func NewTransactionNumber() string {
	return fmt.Sprintf("TXN-%d%03d", time.Now().UnixMilli(), rand.Intn(1000))
}
