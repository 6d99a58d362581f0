package event

import (
	"encoding/json"

	"github.com/datavend/backend/internal/domain/errors"
)

// Kind is the closed set of gateway event types the pipeline understands.
// Anything the gateway sends that is not listed here parses as KindOther and
// is acknowledged without side effects, so new gateway event types fail safe.
type Kind string

const (
	KindChargeSucceeded Kind = "charge.success"
	KindOther           Kind = "other"
)

// PaymentEvent is a parsed gateway notification. Charge is set only for
// KindChargeSucceeded; Name always carries the raw event string for logging.
type PaymentEvent struct {
	Kind   Kind
	Name   string
	Charge *Charge
}

// Charge is the payload of a successful charge notification. Reference is the
// order number the charge settles; Amount is in minor units as sent by the
// gateway.
type Charge struct {
	ID        int64
	Reference string
	Status    string
	Amount    int64
	Channel   string
	Currency  string
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type chargeData struct {
	ID        int64  `json:"id"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Channel   string `json:"channel"`
	Currency  string `json:"currency"`
}

// Parse decodes a raw webhook body into a PaymentEvent. The body must already
// be signature-verified; Parse trusts its content but not its shape.
func Parse(raw []byte) (*PaymentEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.NewDomainError("malformed_event", "cannot decode event envelope", errors.ErrMalformedEvent)
	}
	if env.Event == "" {
		return nil, errors.NewDomainError("malformed_event", "event name missing", errors.ErrMalformedEvent)
	}

	switch env.Event {
	case "charge.success":
		var d chargeData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return nil, errors.NewDomainError("malformed_event", "cannot decode charge data", errors.ErrMalformedEvent)
		}
		if d.Reference == "" {
			return nil, errors.NewDomainError("malformed_event", "charge reference missing", errors.ErrMalformedEvent)
		}
		if d.Amount <= 0 {
			return nil, errors.NewDomainError("malformed_event", "charge amount must be positive", errors.ErrMalformedEvent)
		}
		return &PaymentEvent{
			Kind: KindChargeSucceeded,
			Name: env.Event,
			Charge: &Charge{
				ID:        d.ID,
				Reference: d.Reference,
				Status:    d.Status,
				Amount:    d.Amount,
				Channel:   d.Channel,
				Currency:  d.Currency,
			},
		}, nil
	default:
		return &PaymentEvent{Kind: KindOther, Name: env.Event}, nil
	}
}
