package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/datavend/backend/internal/infrastructure/config"
	"github.com/datavend/backend/pkg/retry"
)

// HTTPSink posts notifications to the admin webhook endpoint. Short in-call
// retries smooth over blips; a delivery that still fails goes back to the
// queue, which owns the longer backoff schedule.
type HTTPSink struct {
	url      string
	client   *http.Client
	retryCfg retry.Config
}

// NewHTTPSink creates a sink for the configured endpoint.
func NewHTTPSink(cfg config.NotificationConfig) *HTTPSink {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSink{
		url: cfg.SinkURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		retryCfg: retry.Config{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		},
	}
}

// Deliver posts the payload as JSON. Any non-2xx response is an error so the
// caller can redeliver.
func (s *HTTPSink) Deliver(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	return retry.Do(ctx, s.retryCfg, func() error {
		return s.post(ctx, body)
	})
}

func (s *HTTPSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification delivery failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification sink returned %d", resp.StatusCode)
	}
	return nil
}

// LogSink writes notifications to the log. It stands in for the HTTP sink in
// environments without an endpoint configured.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(ctx context.Context, payload map[string]any) error {
	s.logger.Info().Interface("notification", payload).Msg("Notification delivered to log sink")
	return nil
}
