package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/datavend/backend/internal/domain/bundle"
	"github.com/datavend/backend/internal/domain/event"
	"github.com/datavend/backend/internal/domain/order"
	"github.com/datavend/backend/internal/domain/reseller"
)

func NewTestReseller(businessName string) *reseller.Reseller {
	now := time.Now()
	return &reseller.Reseller{
		ID:           uuid.New(),
		BusinessName: businessName,
		Email:        businessName + "@datavend.app",
		Phone:        "+2348012345678",
		ReferralCode: reseller.NewReferralCode(),
		Status:       reseller.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func NewTestBundle(network bundle.Network, dataMB int, basePrice, commission int64) *bundle.Bundle {
	now := time.Now()
	return &bundle.Bundle{
		ID:           uuid.New(),
		Name:         fmt.Sprintf("%s %dMB", network, dataMB),
		Network:      network,
		DataMB:       dataMB,
		ValidityDays: 30,
		BasePrice:    basePrice,
		Commission:   commission,
		Currency:     "NGN",
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func NewTestOrder(resellerID, bundleID uuid.UUID, amount, commission int64) *order.Order {
	now := time.Now()
	return &order.Order{
		ID:            uuid.New(),
		OrderNumber:   order.NewOrderNumber(),
		ResellerID:    &resellerID,
		BundleID:      bundleID,
		CustomerPhone: "+2348098765432",
		Quantity:      1,
		Amount:        amount,
		Commission:    commission,
		Currency:      "NGN",
		Status:        order.StatusAccepted,
		PaymentStatus: order.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func NewPaidOrder(resellerID, bundleID uuid.UUID, amount, commission int64) *order.Order {
	o := NewTestOrder(resellerID, bundleID, amount, commission)
	txID := int64(4099260516)
	channel := "card"
	paidAt := time.Now()
	o.Status = order.StatusProcessing
	o.PaymentStatus = order.PaymentPaid
	o.GatewayTxID = &txID
	o.PaymentChannel = &channel
	o.PaidAt = &paidAt
	return o
}

func NewChargeEvent(reference string, amount int64) *event.PaymentEvent {
	return &event.PaymentEvent{
		Kind: event.KindChargeSucceeded,
		Name: "charge.success",
		Charge: &event.Charge{
			ID:        4099260516,
			Reference: reference,
			Status:    "success",
			Amount:    amount,
			Channel:   "card",
			Currency:  "NGN",
		},
	}
}

// ChargeWebhookBody builds the raw bytes Paystack would deliver for a
// successful charge. Byte layout matters for signature tests, so the body is
// assembled as a literal rather than marshalled from a map.
func ChargeWebhookBody(reference string, amount int64) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"charge.success","data":{"id":4099260516,"reference":"%s","status":"success","amount":%d,"channel":"card","currency":"NGN"}}`,
		reference, amount,
	))
}

func UUIDPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
