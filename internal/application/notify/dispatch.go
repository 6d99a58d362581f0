package notify

import (
	"context"
	"encoding/json"
	"fmt"

	domainErrors "github.com/datavend/backend/internal/domain/errors"
)

// DispatchUseCase delivers one queued notification to the sink. Delivery is
// at least once: a failed delivery surfaces as an error and the queue retries
// the message.
type DispatchUseCase struct {
	sink Sink
}

// NewDispatchUseCase creates a new DispatchUseCase.
func NewDispatchUseCase(sink Sink) *DispatchUseCase {
	return &DispatchUseCase{sink: sink}
}

// Execute decodes a queued notification payload and hands it to the sink.
// A payload that does not decode is reported as ErrMalformedEvent; callers
// should not retry those, redelivery cannot fix them.
func (uc *DispatchUseCase) Execute(ctx context.Context, payload []byte) error {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return fmt.Errorf("%w: %v", domainErrors.ErrMalformedEvent, err)
	}
	if len(body) == 0 {
		return fmt.Errorf("%w: empty notification payload", domainErrors.ErrMalformedEvent)
	}
	return uc.sink.Deliver(ctx, body)
}
