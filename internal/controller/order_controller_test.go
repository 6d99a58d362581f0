package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	appOrder "github.com/datavend/backend/internal/application/order"
	"github.com/datavend/backend/internal/domain/bundle"
	"github.com/datavend/backend/internal/domain/ledger"
	"github.com/datavend/backend/internal/domain/reseller"
	"github.com/datavend/backend/internal/gateway"
	"github.com/datavend/backend/internal/testutil"
)

type orderHandlerFixture struct {
	orders    *testutil.MockOrderRepository
	resellers *testutil.MockResellerRepository
	bundles   *testutil.MockBundleRepository
	ledger    *testutil.MockLedgerRepository
	handler   *OrderController

	reseller *reseller.Reseller
	bundle   *bundle.Bundle
}

func newOrderHandlerFixture() *orderHandlerFixture {
	f := &orderHandlerFixture{
		orders:    testutil.NewMockOrderRepository(),
		resellers: testutil.NewMockResellerRepository(),
		bundles:   testutil.NewMockBundleRepository(),
		ledger:    testutil.NewMockLedgerRepository(),
	}

	f.reseller = testutil.NewTestReseller("Halima Data Hub")
	f.resellers.AddReseller(f.reseller)
	f.bundle = testutil.NewTestBundle(bundle.NetworkMTN, 1024, 120000, 30000)
	f.bundles.AddBundle(f.bundle)

	gw := gateway.NewMockGateway("paystack", "sk_test_secret", gateway.WithLatency(0))
	createOrder := appOrder.NewCreateOrderUseCase(
		f.orders, f.resellers, f.bundles, gw,
		"https://datavend.app/checkout/done",
	)
	f.handler = NewOrderController(createOrder, f.orders, f.ledger, nil)
	return f
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestOrderController_Create(t *testing.T) {
	f := newOrderHandlerFixture()

	reqBody := CreateOrderRequest{
		BundleID:      f.bundle.ID.String(),
		CustomerPhone: "+2348098765432",
		Quantity:      1,
	}
	body, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders?ref="+f.reseller.ReferralCode, bytes.NewReader(body))
	rec := httptest.NewRecorder()

	f.handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var resp CheckoutResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.Order.OrderNumber, "ORD-") {
		t.Errorf("expected an ORD- order number, got %s", resp.Order.OrderNumber)
	}
	// 120000 + 30000 kobo selling price, rendered in naira.
	if resp.Order.Amount != 1500.0 {
		t.Errorf("expected amount 1500.00, got %v", resp.Order.Amount)
	}
	if resp.AuthorizationURL == "" {
		t.Error("expected an authorization URL")
	}
	if resp.Reference != resp.Order.OrderNumber {
		t.Errorf("expected reference %s, got %s", resp.Order.OrderNumber, resp.Reference)
	}
}

func TestOrderController_Create_MissingReferralCode(t *testing.T) {
	f := newOrderHandlerFixture()

	body, _ := json.Marshal(CreateOrderRequest{
		BundleID:      f.bundle.ID.String(),
		CustomerPhone: "+2348098765432",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	f.handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	var resp ErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Code != "validation_error" {
		t.Errorf("expected code validation_error, got %s", resp.Code)
	}
}

func TestOrderController_Create_UnknownReferralCode(t *testing.T) {
	f := newOrderHandlerFixture()

	body, _ := json.Marshal(CreateOrderRequest{
		BundleID:      f.bundle.ID.String(),
		CustomerPhone: "+2348098765432",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders?ref=NOSUCHCD", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	f.handler.Create(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestOrderController_Create_BadPhoneNumber(t *testing.T) {
	f := newOrderHandlerFixture()

	body, _ := json.Marshal(CreateOrderRequest{
		BundleID:      f.bundle.ID.String(),
		CustomerPhone: "08098765432",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders?ref="+f.reseller.ReferralCode, bytes.NewReader(body))
	rec := httptest.NewRecorder()

	f.handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestOrderController_Get(t *testing.T) {
	f := newOrderHandlerFixture()

	o := testutil.NewPaidOrder(f.reseller.ID, f.bundle.ID, 150000, 30000)
	f.orders.AddOrder(o)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+o.OrderNumber, nil), "orderNumber", o.OrderNumber)
	rec := httptest.NewRecorder()

	f.handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp OrderResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OrderNumber != o.OrderNumber {
		t.Errorf("expected order %s, got %s", o.OrderNumber, resp.OrderNumber)
	}
	if resp.PaymentStatus != "paid" {
		t.Errorf("expected payment status paid, got %s", resp.PaymentStatus)
	}
	if resp.PaidAt == nil {
		t.Error("expected paid_at to be set")
	}
}

func TestOrderController_Get_NotFound(t *testing.T) {
	f := newOrderHandlerFixture()

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/orders/ORD-000", nil), "orderNumber", "ORD-000")
	rec := httptest.NewRecorder()

	f.handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestOrderController_List_FilterByPaymentStatus(t *testing.T) {
	f := newOrderHandlerFixture()

	f.orders.AddOrder(testutil.NewTestOrder(f.reseller.ID, f.bundle.ID, 150000, 30000))
	paid := testutil.NewPaidOrder(f.reseller.ID, f.bundle.ID, 150000, 30000)
	f.orders.AddOrder(paid)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?payment_status=paid", nil)
	rec := httptest.NewRecorder()

	f.handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp []*OrderResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected 1 order, got %d", len(resp))
	}
	if resp[0].OrderNumber != paid.OrderNumber {
		t.Errorf("expected %s, got %s", paid.OrderNumber, resp[0].OrderNumber)
	}
}

func TestOrderController_GetTransactions(t *testing.T) {
	f := newOrderHandlerFixture()

	o := testutil.NewPaidOrder(f.reseller.ID, f.bundle.ID, 150000, 30000)
	f.orders.AddOrder(o)
	txn, err := ledger.NewOrderPayment(o.OrderNumber, &f.reseller.ID, 150000, "NGN", "paystack", "4099260516")
	if err != nil {
		t.Fatalf("NewOrderPayment() error = %v", err)
	}
	if err := f.ledger.Create(context.Background(), txn); err != nil {
		t.Fatalf("ledger create error = %v", err)
	}

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+o.OrderNumber+"/transactions", nil), "orderNumber", o.OrderNumber)
	rec := httptest.NewRecorder()

	f.handler.GetTransactions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp []*TransactionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(resp))
	}
	if resp[0].OrderNumber != o.OrderNumber {
		t.Errorf("expected order %s, got %s", o.OrderNumber, resp[0].OrderNumber)
	}
	if resp[0].Amount != 1500.0 {
		t.Errorf("expected amount 1500.00, got %v", resp[0].Amount)
	}
}

func TestOrderController_GetTransactions_UnknownOrder(t *testing.T) {
	f := newOrderHandlerFixture()

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/orders/ORD-000/transactions", nil), "orderNumber", "ORD-000")
	rec := httptest.NewRecorder()

	f.handler.GetTransactions(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestOrderController_Create_SuspendedReseller(t *testing.T) {
	f := newOrderHandlerFixture()

	suspended := testutil.NewTestReseller("Closed Shop")
	suspended.Suspend()
	f.resellers.AddReseller(suspended)

	body, _ := json.Marshal(CreateOrderRequest{
		BundleID:      f.bundle.ID.String(),
		CustomerPhone: "+2348098765432",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders?ref="+suspended.ReferralCode, bytes.NewReader(body))
	rec := httptest.NewRecorder()

	f.handler.Create(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rec.Code)
	}

	var resp ErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Code != "reseller_inactive" {
		t.Errorf("expected code reseller_inactive, got %s", resp.Code)
	}
}

func TestOrderController_Create_InvalidBundleID(t *testing.T) {
	f := newOrderHandlerFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders?ref="+f.reseller.ReferralCode,
		strings.NewReader(`{"bundle_id":"not-a-uuid","customer_phone":"+2348098765432"}`))
	rec := httptest.NewRecorder()

	f.handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}
