package controller

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	domainErrors "github.com/datavend/backend/internal/domain/errors"
	"github.com/datavend/backend/internal/domain/event"
	"github.com/datavend/backend/internal/gateway"
	"github.com/datavend/backend/internal/infrastructure/observability"
)

const (
	signatureHeader = "x-paystack-signature"
	maxWebhookBytes = 1 << 20
)

// Enqueuer is the producer side of the payments queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, ref, kind string, payload []byte) (string, error)
}

// WebhookController ingests gateway webhooks. It does the minimum before
// responding: verify the signature over the raw bytes, parse out the
// reference, enqueue. Settlement happens in the worker.
type WebhookController struct {
	gateways *gateway.Registry
	queue    Enqueuer
	metrics  *observability.Metrics
}

// NewWebhookController creates a new WebhookController.
func NewWebhookController(gateways *gateway.Registry, queue Enqueuer, metrics *observability.Metrics) *WebhookController {
	return &WebhookController{
		gateways: gateways,
		queue:    queue,
		metrics:  metrics,
	}
}

// Receive handles POST /webhooks/{gateway}
func (h *WebhookController) Receive(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "gateway")
	gw, err := h.gateways.Get(name)
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.count(name, "rejected")
		writeError(w, domainErrors.NewValidationError("body", "cannot read request body"))
		return
	}

	// The signature covers the exact bytes on the wire. Anything that fails
	// here is not from the gateway and must not reach the queue.
	signature := r.Header.Get(signatureHeader)
	if signature == "" || !gw.VerifyWebhookSignature(body, signature) {
		h.count(name, "invalid_signature")
		log.Warn().
			Str("gateway", name).
			Str("remote_addr", r.RemoteAddr).
			Msg("Webhook signature verification failed")
		writeError(w, domainErrors.ErrInvalidSignature)
		return
	}

	evt, err := event.Parse(body)
	if err != nil {
		h.count(name, "malformed")
		writeError(w, err)
		return
	}

	// The raw body goes on the queue, not the parsed form, so the worker
	// re-parses the same bytes the signature covered.
	messageID, err := h.queue.Enqueue(r.Context(), eventRef(evt), evt.Name, body)
	if err != nil {
		h.count(name, "enqueue_failed")
		log.Error().Err(err).Str("gateway", name).Msg("Failed to enqueue webhook event")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "failed to queue event",
			Code:  "enqueue_failed",
		})
		return
	}

	h.count(name, "accepted")
	writeJSON(w, http.StatusOK, WebhookAccepted{Status: "queued", MessageID: messageID})
}

func eventRef(evt *event.PaymentEvent) string {
	if evt.Charge != nil {
		return evt.Charge.Reference
	}
	return evt.Name
}

func (h *WebhookController) count(gatewayName, result string) {
	if h.metrics != nil {
		h.metrics.WebhooksReceived.WithLabelValues(gatewayName, result).Inc()
	}
}
