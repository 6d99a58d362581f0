package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"math/rand"
	"time"

	domainErrors "github.com/datavend/backend/internal/domain/errors"
	"github.com/google/uuid"
)

// MockGateway simulates a payment gateway for local development and tests.
// It signs and verifies webhooks with a real HMAC so the ingest path can be
// exercised end to end without Paystack credentials.
type MockGateway struct {
	name        string
	secret      []byte
	failureRate float64 // 0.0 to 1.0
	latency     time.Duration
}

type MockGatewayOption func(*MockGateway)

func WithFailureRate(rate float64) MockGatewayOption {
	return func(g *MockGateway) { g.failureRate = rate }
}

func WithLatency(d time.Duration) MockGatewayOption {
	return func(g *MockGateway) { g.latency = d }
}

func NewMockGateway(name, secret string, opts ...MockGatewayOption) *MockGateway {
	g := &MockGateway{
		name:        name,
		secret:      []byte(secret),
		failureRate: 0.0,
		latency:     50 * time.Millisecond,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *MockGateway) Name() string { return g.name }

func (g *MockGateway) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	// Simulate latency
	select {
	case <-time.After(g.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Simulate failure
	if rand.Float64() < g.failureRate {
		return nil, domainErrors.NewDomainError(
			"gateway_rejected",
			fmt.Sprintf("%s: simulated rejection for reference %s", g.name, req.Reference),
			domainErrors.ErrGatewayRejected,
		)
	}

	code := uuid.New().String()[:8]
	return &InitializeResult{
		AuthorizationURL: fmt.Sprintf("https://checkout.%s.test/%s", g.name, code),
		AccessCode:       code,
		Reference:        req.Reference,
	}, nil
}

func (g *MockGateway) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	select {
	case <-time.After(g.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() < g.failureRate {
		return nil, fmt.Errorf("%w: %s: simulated outage", domainErrors.ErrGatewayUnavailable, g.name)
	}

	return &VerifyResult{
		ID:        rand.Int63(),
		Reference: reference,
		Status:    "success",
		Channel:   "card",
	}, nil
}

func (g *MockGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, g.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), sig)
}

// SignBody returns the hex HMAC the gateway would send for body. Test helper.
func (g *MockGateway) SignBody(body []byte) string {
	mac := hmac.New(sha512.New, g.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
