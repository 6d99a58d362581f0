package controller

import (
	"time"

	"github.com/google/uuid"

	"github.com/datavend/backend/internal/domain/bundle"
	"github.com/datavend/backend/internal/domain/ledger"
	"github.com/datavend/backend/internal/domain/order"
	"github.com/datavend/backend/internal/domain/reseller"
	redisq "github.com/datavend/backend/internal/infrastructure/redis"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (float64 for money, string for IDs,
// validation tags). Controllers convert these before calling business logic.

// CreateOrderRequest holds the input for placing an order.
type CreateOrderRequest struct {
	BundleID      string `json:"bundle_id" validate:"required,uuid"`
	CustomerPhone string `json:"customer_phone" validate:"required,e164"`
	Quantity      int    `json:"quantity" validate:"omitempty,gte=1,lte=100"`
}

// --- Response DTOs ---

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID             string     `json:"id"`
	OrderNumber    string     `json:"order_number"`
	ResellerID     string     `json:"reseller_id,omitempty"`
	BundleID       string     `json:"bundle_id"`
	CustomerPhone  string     `json:"customer_phone"`
	Quantity       int        `json:"quantity"`
	Amount         float64    `json:"amount"`
	Commission     float64    `json:"commission"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	PaymentStatus  string     `json:"payment_status"`
	PaymentChannel *string    `json:"payment_channel,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CheckoutResponse is returned when an order is placed: the pending order
// plus the gateway handle the customer completes payment with.
type CheckoutResponse struct {
	Order            *OrderResponse `json:"order"`
	AuthorizationURL string         `json:"authorization_url"`
	AccessCode       string         `json:"access_code"`
	Reference        string         `json:"reference"`
}

// BundleResponse represents a catalog entry in API responses.
type BundleResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Network      string  `json:"network"`
	DataMB       int     `json:"data_mb"`
	ValidityDays int     `json:"validity_days"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
}

// ResellerResponse represents a reseller with their running totals.
type ResellerResponse struct {
	ID            string    `json:"id"`
	BusinessName  string    `json:"business_name"`
	ReferralCode  string    `json:"referral_code"`
	Status        string    `json:"status"`
	TotalEarnings float64   `json:"total_earnings"`
	TotalSales    float64   `json:"total_sales"`
	TotalOrders   int64     `json:"total_orders"`
	CreatedAt     time.Time `json:"created_at"`
}

// TransactionResponse represents a ledger transaction in API responses.
type TransactionResponse struct {
	ID                string    `json:"id"`
	TransactionNumber string    `json:"transaction_number"`
	OrderNumber       string    `json:"order_number"`
	ResellerID        string    `json:"reseller_id,omitempty"`
	EntryType         string    `json:"entry_type"`
	Amount            float64   `json:"amount"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	Provider          string    `json:"provider"`
	ProviderRef       string    `json:"provider_ref,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// QueueView is the management view of one durable queue.
type QueueView struct {
	Stats   redisq.Stats          `json:"stats"`
	Failed  []redisq.FailedMessage `json:"failed_sample"`
	Pending []PendingMessageView   `json:"pending_sample"`
}

// PendingMessageView is a pending stream entry with idle time in
// milliseconds for JSON consumers.
type PendingMessageView struct {
	ID       string `json:"id"`
	Consumer string `json:"consumer"`
	IdleMS   int64  `json:"idle_ms"`
	Attempts int64  `json:"attempts"`
}

// WebhookAccepted acknowledges a verified and enqueued webhook.
type WebhookAccepted struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromOrder converts a domain order to API response.
func FromOrder(o *order.Order) *OrderResponse {
	return &OrderResponse{
		ID:             o.ID.String(),
		OrderNumber:    o.OrderNumber,
		ResellerID:     uuidString(o.ResellerID),
		BundleID:       o.BundleID.String(),
		CustomerPhone:  o.CustomerPhone,
		Quantity:       o.Quantity,
		Amount:         koboToFloat(o.Amount),
		Commission:     koboToFloat(o.Commission),
		Currency:       o.Currency,
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		PaymentChannel: o.PaymentChannel,
		PaidAt:         o.PaidAt,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

// FromBundle converts a catalog bundle to API response. The price shown is
// what the customer pays.
func FromBundle(b *bundle.Bundle) *BundleResponse {
	return &BundleResponse{
		ID:           b.ID.String(),
		Name:         b.Name,
		Network:      string(b.Network),
		DataMB:       b.DataMB,
		ValidityDays: b.ValidityDays,
		Price:        koboToFloat(b.SellingPrice()),
		Currency:     b.Currency,
	}
}

// FromReseller converts a domain reseller to API response.
func FromReseller(r *reseller.Reseller) *ResellerResponse {
	return &ResellerResponse{
		ID:            r.ID.String(),
		BusinessName:  r.BusinessName,
		ReferralCode:  r.ReferralCode,
		Status:        string(r.Status),
		TotalEarnings: koboToFloat(r.TotalEarnings),
		TotalSales:    koboToFloat(r.TotalSales),
		TotalOrders:   r.TotalOrders,
		CreatedAt:     r.CreatedAt,
	}
}

// FromTransaction converts a ledger transaction to API response.
func FromTransaction(t *ledger.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:                t.ID.String(),
		TransactionNumber: t.TransactionNumber,
		OrderNumber:       t.OrderNumber,
		ResellerID:        uuidString(t.ResellerID),
		EntryType:         string(t.EntryType),
		Amount:            koboToFloat(t.Amount),
		Currency:          t.Currency,
		Status:            string(t.Status),
		Provider:          t.Provider,
		ProviderRef:       t.ProviderRef,
		CreatedAt:         t.CreatedAt,
	}
}

// FromPending converts a pending stream entry to API response.
func FromPending(p redisq.PendingMessage) PendingMessageView {
	return PendingMessageView{
		ID:       p.ID,
		Consumer: p.Consumer,
		IdleMS:   p.Idle.Milliseconds(),
		Attempts: p.Attempts,
	}
}

// koboToFloat converts minor units to a float naira amount.
func koboToFloat(kobo int64) float64 {
	return float64(kobo) / 100.0
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
