package event_test

import (
	"testing"

	"github.com/datavend/backend/internal/domain/errors"
	"github.com/datavend/backend/internal/domain/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ChargeSucceeded(t *testing.T) {
	raw := []byte(`{
		"event": "charge.success",
		"data": {
			"id": 302961,
			"reference": "ORD-981152373",
			"status": "success",
			"amount": 1700,
			"channel": "card",
			"currency": "NGN"
		}
	}`)

	ev, err := event.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, event.KindChargeSucceeded, ev.Kind)
	assert.Equal(t, "charge.success", ev.Name)
	require.NotNil(t, ev.Charge)
	assert.Equal(t, int64(302961), ev.Charge.ID)
	assert.Equal(t, "ORD-981152373", ev.Charge.Reference)
	assert.Equal(t, "success", ev.Charge.Status)
	assert.Equal(t, int64(1700), ev.Charge.Amount)
	assert.Equal(t, "card", ev.Charge.Channel)
	assert.Equal(t, "NGN", ev.Charge.Currency)
}

func TestParse_UnknownKind(t *testing.T) {
	raw := []byte(`{"event": "transfer.success", "data": {"reference": "TRF-123"}}`)

	ev, err := event.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, event.KindOther, ev.Kind)
	assert.Equal(t, "transfer.success", ev.Name)
	assert.Nil(t, ev.Charge)
}

func TestParse_UnknownKind_IgnoresDataShape(t *testing.T) {
	raw := []byte(`{"event": "subscription.create", "data": "whatever"}`)

	ev, err := event.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, event.KindOther, ev.Kind)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := event.Parse([]byte(`{not json`))
	assert.ErrorIs(t, err, errors.ErrMalformedEvent)
}

func TestParse_MissingEventName(t *testing.T) {
	_, err := event.Parse([]byte(`{"data": {"reference": "ORD-981152373"}}`))
	assert.ErrorIs(t, err, errors.ErrMalformedEvent)
}

func TestParse_ChargeMissingReference(t *testing.T) {
	raw := []byte(`{"event": "charge.success", "data": {"amount": 1700}}`)
	_, err := event.Parse(raw)
	assert.ErrorIs(t, err, errors.ErrMalformedEvent)
}

func TestParse_ChargeNonPositiveAmount(t *testing.T) {
	raw := []byte(`{"event": "charge.success", "data": {"reference": "ORD-981152373", "amount": 0}}`)
	_, err := event.Parse(raw)
	assert.ErrorIs(t, err, errors.ErrMalformedEvent)

	raw = []byte(`{"event": "charge.success", "data": {"reference": "ORD-981152373", "amount": -100}}`)
	_, err = event.Parse(raw)
	assert.ErrorIs(t, err, errors.ErrMalformedEvent)
}

func TestParse_ChargeMalformedData(t *testing.T) {
	raw := []byte(`{"event": "charge.success", "data": "not an object"}`)
	_, err := event.Parse(raw)
	assert.ErrorIs(t, err, errors.ErrMalformedEvent)
}
