package outbox

import (
	"time"

	"github.com/google/uuid"
)

type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       map[string]any
	Status        Status
	RetryCount    int
	MaxRetries    int
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

// Event types published through the outbox
const (
	EventOrderPaid = "notification.order_paid"
)

func NewEntry(aggregateType string, aggregateID uuid.UUID, eventType string, payload map[string]any) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		Status:        StatusPending,
		RetryCount:    0,
		MaxRetries:    5,
		CreatedAt:     time.Now(),
	}
}

// NewOrderPaidEntry builds the admin notification that is written in the same
// transaction that settles the order, so a notification exists if and only if
// the settlement committed.
func NewOrderPaidEntry(orderID uuid.UUID, orderNumber string, amount int64, currency, bundleName, recipient string) *Entry {
	return NewEntry("order", orderID, EventOrderPaid, map[string]any{
		"type":      "order_paid",
		"recipient": recipient,
		"data": map[string]any{
			"orderNumber": orderNumber,
			"amount":      amount,
			"currency":    currency,
			"bundle":      bundleName,
		},
	})
}
