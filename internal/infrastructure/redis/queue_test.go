package redis

import (
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/datavend/backend/internal/infrastructure/config"
)

func TestNewQueue_DeadLetterStreamName(t *testing.T) {
	q := NewQueue(nil, PaymentEventsStream, PaymentEventsGroup, config.QueuePolicy{})

	assert.Equal(t, "payments:events", q.Stream())
	assert.Equal(t, "reconcilers", q.Group())
	assert.Equal(t, "payments:events:dlq", q.dlq)
}

func TestBuildStats(t *testing.T) {
	tests := []struct {
		name                                   string
		length, entriesRead, lag, pending, dlq int64
		want                                   Stats
	}{
		{
			name:   "fresh stream",
			length: 0,
			want:   Stats{Stream: "s", Group: "g"},
		},
		{
			name:        "messages in every state",
			length:      10,
			entriesRead: 8,
			lag:         2,
			pending:     3,
			dlq:         1,
			want:        Stats{Stream: "s", Group: "g", Length: 10, Waiting: 2, Active: 3, Completed: 5, Failed: 1},
		},
		{
			name:        "all delivered and acked",
			length:      4,
			entriesRead: 4,
			lag:         0,
			pending:     0,
			want:        Stats{Stream: "s", Group: "g", Length: 4, Completed: 4},
		},
		{
			name:        "negative lag after trim clamps to zero",
			length:      3,
			entriesRead: 1,
			lag:         -1,
			pending:     2,
			want:        Stats{Stream: "s", Group: "g", Length: 3, Waiting: 0, Active: 2, Completed: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildStats("s", "g", tt.length, tt.entriesRead, tt.lag, tt.pending, tt.dlq)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMessageFromStream(t *testing.T) {
	raw := goredis.XMessage{
		ID: "1700000000000-0",
		Values: map[string]any{
			"ref":       "ORD-981152373",
			"kind":      "charge.success",
			"payload":   `{"event":"charge.success"}`,
			"timestamp": "1700000000",
		},
	}

	msg := messageFromStream(raw, 3)

	assert.Equal(t, "1700000000000-0", msg.ID)
	assert.Equal(t, "ORD-981152373", msg.Ref)
	assert.Equal(t, "charge.success", msg.Kind)
	assert.Equal(t, []byte(`{"event":"charge.success"}`), msg.Payload)
	assert.Equal(t, int64(3), msg.Attempt)
}

func TestMessageFromStream_MissingValues(t *testing.T) {
	msg := messageFromStream(goredis.XMessage{ID: "1-0", Values: map[string]any{}}, 1)

	assert.Equal(t, "1-0", msg.ID)
	assert.Empty(t, msg.Ref)
	assert.Empty(t, msg.Kind)
	assert.Empty(t, msg.Payload)
}

func TestFailedFromStream(t *testing.T) {
	raw := goredis.XMessage{
		ID: "1700000001000-0",
		Values: map[string]any{
			"ref":       "ORD-981152373",
			"kind":      "charge.success",
			"payload":   `{}`,
			"origin_id": "1700000000000-0",
			"attempts":  "5",
			"reason":    "exhausted 5 delivery attempts",
		},
	}

	failed := failedFromStream(raw)

	assert.Equal(t, "1700000001000-0", failed.ID)
	assert.Equal(t, "ORD-981152373", failed.Ref)
	assert.Equal(t, "1700000000000-0", failed.OriginID)
	assert.Equal(t, int64(5), failed.Attempts)
	assert.Equal(t, "exhausted 5 delivery attempts", failed.Reason)
}

func TestIntValue_Garbage(t *testing.T) {
	values := map[string]any{
		"attempts": "not-a-number",
		"count":    42,
	}

	assert.Zero(t, intValue(values, "attempts"))
	assert.Zero(t, intValue(values, "count"))
	assert.Zero(t, intValue(values, "missing"))
}
