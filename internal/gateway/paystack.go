package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	domainErrors "github.com/datavend/backend/internal/domain/errors"
	"github.com/datavend/backend/internal/infrastructure/config"
	"github.com/datavend/backend/internal/infrastructure/observability"
	"github.com/datavend/backend/pkg/retry"
)

const maxResponseBytes = 1 << 20

// Paystack is the live gateway client. The secret key authenticates API
// calls and is the HMAC key Paystack signs webhook deliveries with.
type Paystack struct {
	name     string
	secret   []byte
	baseURL  string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[*apiResponse]
	retryCfg retry.Config
	metrics  *observability.Metrics
}

func NewPaystack(cfg config.GatewayConfig, metrics *observability.Metrics) *Paystack {
	name := cfg.Provider
	if name == "" {
		name = "paystack"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	retryCfg := retry.DefaultConfig()
	if cfg.MaxRetries > 0 {
		retryCfg.MaxAttempts = uint(cfg.MaxRetries)
	}
	if cfg.RetryDelay > 0 {
		retryCfg.InitialDelay = cfg.RetryDelay
	}

	return &Paystack{
		name:    name,
		secret:  []byte(cfg.SecretKey),
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker:  newBreaker(name, cfg, metrics),
		retryCfg: retryCfg,
		metrics:  metrics,
	}
}

func (p *Paystack) Name() string { return p.name }

// VerifyWebhookSignature checks the x-paystack-signature header value against
// the raw request body. The comparison is constant-time.
func (p *Paystack) VerifyWebhookSignature(body []byte, signature string) bool {
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha512.New, p.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), sig)
}

type initializePayload struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Reference   string         `json:"reference"`
	Currency    string         `json:"currency,omitempty"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	ID        int64  `json:"id"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Channel   string `json:"channel"`
	Currency  string `json:"currency"`
}

type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// InitializeTransaction creates a checkout session for the given reference.
func (p *Paystack) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	body, err := json.Marshal(initializePayload{
		Email:       req.Email,
		Amount:      req.AmountMinor,
		Reference:   req.Reference,
		Currency:    req.Currency,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initialize request: %w", err)
	}

	res, err := p.call(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return nil, err
	}

	var env envelope[initializeData]
	if err := json.Unmarshal(res.body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode initialize response: %w", err)
	}
	if res.statusCode >= 400 || !env.Status {
		return nil, domainErrors.NewDomainError("gateway_rejected", env.Message, domainErrors.ErrGatewayRejected)
	}

	return &InitializeResult{
		AuthorizationURL: env.Data.AuthorizationURL,
		AccessCode:       env.Data.AccessCode,
		Reference:        env.Data.Reference,
	}, nil
}

// VerifyTransaction fetches the gateway's record for a reference. Used to
// cross-check webhook claims against the API.
func (p *Paystack) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	res, err := p.call(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var env envelope[verifyData]
	if err := json.Unmarshal(res.body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode verify response: %w", err)
	}
	if res.statusCode == http.StatusNotFound {
		return nil, domainErrors.NewDomainError("gateway_rejected", env.Message, domainErrors.ErrGatewayNotFound)
	}
	if res.statusCode >= 400 || !env.Status {
		return nil, domainErrors.NewDomainError("gateway_rejected", env.Message, domainErrors.ErrGatewayRejected)
	}

	return &VerifyResult{
		ID:          env.Data.ID,
		Reference:   env.Data.Reference,
		Status:      env.Data.Status,
		AmountMinor: env.Data.Amount,
		Channel:     env.Data.Channel,
		Currency:    env.Data.Currency,
	}, nil
}

type apiResponse struct {
	statusCode int
	body       []byte
}

// call performs one API request with retries around the circuit breaker.
// Transport failures and 5xx responses are retried; 4xx responses are
// returned to the caller for envelope decoding.
func (p *Paystack) call(ctx context.Context, method, path string, body []byte) (*apiResponse, error) {
	res, err := retry.DoWithResult(ctx, p.retryCfg, func() (*apiResponse, error) {
		return p.breaker.Execute(func() (*apiResponse, error) {
			return p.roundTrip(ctx, method, path, body)
		})
	})

	if p.metrics != nil {
		p.metrics.CircuitBreakerRequests.WithLabelValues(p.name, callResult(err)).Inc()
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", domainErrors.ErrGatewayUnavailable, method, path, err)
	}
	return res, nil
}

func (p *Paystack) roundTrip(ctx context.Context, method, path string, body []byte) (*apiResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+string(p.secret))
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	return &apiResponse{statusCode: resp.StatusCode, body: data}, nil
}

func callResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "open"
	default:
		return "failure"
	}
}
