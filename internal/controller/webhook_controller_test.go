package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/datavend/backend/internal/gateway"
	"github.com/datavend/backend/internal/testutil"
)

var chargeBody = []byte(`{"event":"charge.success","data":{"id":302961,"reference":"ORD-20260815-483920","status":"success","amount":340000,"channel":"card","currency":"NGN"}}`)

func newWebhookRequest(gatewayName string, body []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/"+gatewayName, bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("gateway", gatewayName)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestWebhookController_Receive(t *testing.T) {
	gw := gateway.NewMockGateway("paystack", "whsec_test", gateway.WithLatency(0))
	queue := testutil.NewMockEnqueuer()
	handler := NewWebhookController(gateway.NewRegistry(gw), queue, nil)

	req := newWebhookRequest("paystack", chargeBody, gw.SignBody(chargeBody))
	rec := httptest.NewRecorder()

	handler.Receive(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp WebhookAccepted
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "queued" {
		t.Errorf("expected status queued, got %s", resp.Status)
	}
	if resp.MessageID == "" {
		t.Error("expected a message id")
	}

	msgs := queue.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 enqueued message, got %d", len(msgs))
	}
	if msgs[0].Ref != "ORD-20260815-483920" {
		t.Errorf("expected ref ORD-20260815-483920, got %s", msgs[0].Ref)
	}
	if msgs[0].Kind != "charge.success" {
		t.Errorf("expected kind charge.success, got %s", msgs[0].Kind)
	}
	// The exact wire bytes must go on the queue; the worker re-verifies
	// nothing, it trusts that these are the bytes the signature covered.
	if !bytes.Equal(msgs[0].Payload, chargeBody) {
		t.Error("enqueued payload does not match the raw request body")
	}
}

func TestWebhookController_Receive_TamperedBody(t *testing.T) {
	gw := gateway.NewMockGateway("paystack", "whsec_test", gateway.WithLatency(0))
	queue := testutil.NewMockEnqueuer()
	handler := NewWebhookController(gateway.NewRegistry(gw), queue, nil)

	signature := gw.SignBody(chargeBody)
	tampered := bytes.Replace(chargeBody, []byte(`"amount":340000`), []byte(`"amount":1`), 1)

	req := newWebhookRequest("paystack", tampered, signature)
	rec := httptest.NewRecorder()

	handler.Receive(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	var resp ErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Code != "invalid_signature" {
		t.Errorf("expected code invalid_signature, got %s", resp.Code)
	}
	if len(queue.Messages()) != 0 {
		t.Error("tampered event must not reach the queue")
	}
}

func TestWebhookController_Receive_MissingSignature(t *testing.T) {
	gw := gateway.NewMockGateway("paystack", "whsec_test", gateway.WithLatency(0))
	queue := testutil.NewMockEnqueuer()
	handler := NewWebhookController(gateway.NewRegistry(gw), queue, nil)

	req := newWebhookRequest("paystack", chargeBody, "")
	rec := httptest.NewRecorder()

	handler.Receive(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
	if len(queue.Messages()) != 0 {
		t.Error("unsigned event must not reach the queue")
	}
}

func TestWebhookController_Receive_UnknownGateway(t *testing.T) {
	gw := gateway.NewMockGateway("paystack", "whsec_test", gateway.WithLatency(0))
	queue := testutil.NewMockEnqueuer()
	handler := NewWebhookController(gateway.NewRegistry(gw), queue, nil)

	req := newWebhookRequest("flutterwave", chargeBody, gw.SignBody(chargeBody))
	rec := httptest.NewRecorder()

	handler.Receive(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestWebhookController_Receive_MalformedEvent(t *testing.T) {
	gw := gateway.NewMockGateway("paystack", "whsec_test", gateway.WithLatency(0))
	queue := testutil.NewMockEnqueuer()
	handler := NewWebhookController(gateway.NewRegistry(gw), queue, nil)

	// Correctly signed, so it passes verification, but not a valid envelope.
	body := []byte(`{"event":""}`)
	req := newWebhookRequest("paystack", body, gw.SignBody(body))
	rec := httptest.NewRecorder()

	handler.Receive(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	var resp ErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Code != "malformed_event" {
		t.Errorf("expected code malformed_event, got %s", resp.Code)
	}
	if len(queue.Messages()) != 0 {
		t.Error("malformed event must not reach the queue")
	}
}

func TestWebhookController_Receive_EnqueueFailure(t *testing.T) {
	gw := gateway.NewMockGateway("paystack", "whsec_test", gateway.WithLatency(0))
	queue := testutil.NewMockEnqueuer()
	queue.EnqueueFunc = func(ctx context.Context, ref, kind string, payload []byte) (string, error) {
		return "", errors.New("redis: connection refused")
	}
	handler := NewWebhookController(gateway.NewRegistry(gw), queue, nil)

	req := newWebhookRequest("paystack", chargeBody, gw.SignBody(chargeBody))
	rec := httptest.NewRecorder()

	handler.Receive(rec, req)

	// 500 tells the gateway to redeliver later.
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}

	var resp ErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Code != "enqueue_failed" {
		t.Errorf("expected code enqueue_failed, got %s", resp.Code)
	}
}
