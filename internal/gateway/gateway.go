package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	domainErrors "github.com/datavend/backend/internal/domain/errors"
	"github.com/datavend/backend/internal/infrastructure/config"
	"github.com/datavend/backend/internal/infrastructure/observability"
)

// InitializeRequest contains the data needed to start a checkout with the
// payment gateway.
type InitializeRequest struct {
	Reference   string
	Email       string
	AmountMinor int64 // in minor units (kobo)
	Currency    string
	CallbackURL string
	Metadata    map[string]any
}

// InitializeResult holds the checkout handle returned by the gateway.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyResult holds the gateway's view of a transaction.
type VerifyResult struct {
	ID          int64
	Reference   string
	Status      string
	AmountMinor int64
	Channel     string
	Currency    string
}

// Gateway is the interface payment gateways implement.
type Gateway interface {
	// Name returns the gateway name.
	Name() string
	// InitializeTransaction starts a checkout and returns the payment URL.
	InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	// VerifyTransaction fetches the gateway's record of a transaction.
	VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error)
	// VerifyWebhookSignature reports whether signature is a valid HMAC of
	// body. It must be called with the raw request bytes, not a re-encoded
	// form of them.
	VerifyWebhookSignature(body []byte, signature string) bool
}

type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gatewayList ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway)}
	for _, g := range gatewayList {
		r.Register(g)
	}
	return r
}

func (r *Registry) Register(g Gateway) {
	r.gateways[g.Name()] = g
}

func (r *Registry) Get(name string) (Gateway, error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("unknown gateway %q: %w", name, domainErrors.ErrGatewayNotFound)
	}
	return g, nil
}

// newBreaker builds the circuit breaker guarding a gateway's API calls and
// keeps the breaker state gauge current.
func newBreaker(name string, cfg config.GatewayConfig, metrics *observability.Metrics) *gobreaker.CircuitBreaker[*apiResponse] {
	threshold := uint32(cfg.CircuitBreakerThreshold)
	if threshold == 0 {
		threshold = 10
	}
	timeout := cfg.CircuitBreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return gobreaker.NewCircuitBreaker[*apiResponse](gobreaker.Settings{
		Name:        name,
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if metrics != nil {
				metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			}
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
