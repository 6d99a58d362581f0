package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/datavend/backend/internal/infrastructure/config"
)

const (
	// PaymentEventsStream carries verified gateway events awaiting reconciliation.
	PaymentEventsStream = "payments:events"
	PaymentEventsGroup  = "reconcilers"

	// NotificationsStream carries admin notifications awaiting delivery.
	NotificationsStream = "notifications:dispatch"
	NotificationsGroup  = "notifiers"

	dlqSuffix = ":dlq"
)

// Message is a single delivery handed to a Handler. Payload holds the exact
// bytes that were enqueued; Attempt counts deliveries including this one.
type Message struct {
	ID      string
	Ref     string
	Kind    string
	Payload []byte
	Attempt int64
}

// Handler processes one message. Returning nil acknowledges the message;
// returning an error leaves it pending for redelivery after the backoff.
type Handler func(ctx context.Context, msg Message) error

// Queue is a durable at-least-once queue on a Redis stream with a consumer
// group. Failed deliveries stay in the pending entries list and are reclaimed
// after the policy backoff; messages that exhaust the attempt budget are
// parked on a companion dead-letter stream instead of being dropped.
type Queue struct {
	client *redis.Client
	stream string
	group  string
	dlq    string
	policy config.QueuePolicy
}

func NewQueue(client *redis.Client, stream, group string, policy config.QueuePolicy) *Queue {
	return &Queue{
		client: client,
		stream: stream,
		group:  group,
		dlq:    stream + dlqSuffix,
		policy: policy,
	}
}

func (q *Queue) Stream() string { return q.stream }

func (q *Queue) Group() string { return q.group }

// EnsureGroup creates the stream and consumer group if they don't exist
func (q *Queue) EnsureGroup(ctx context.Context) error {
	const busyGroupMsg = "BUSYGROUP"
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), busyGroupMsg) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Enqueue appends a message to the stream and returns its stream ID.
func (q *Queue) Enqueue(ctx context.Context, ref, kind string, payload []byte) (string, error) {
	id, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{
			"ref":       ref,
			"kind":      kind,
			"payload":   string(payload),
			"timestamp": time.Now().Unix(),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue message: %w", err)
	}
	return id, nil
}

// Consume reads fresh messages for the given consumer name and runs the
// handler on each. It blocks until ctx is cancelled. Handler failures are not
// acknowledged; the reclaim loop redelivers them.
func (q *Queue) Consume(ctx context.Context, consumer string, handler Handler) error {
	for {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: consumer,
			Streams:  []string{q.stream, ">"},
			Count:    q.policy.BatchSize,
			Block:    q.policy.BlockDuration,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == redis.Nil {
				// No new messages
				continue
			}
			// Transient read failure; back off briefly instead of spinning
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(q.policy.BlockDuration):
			}
			continue
		}

		for _, stream := range streams {
			for _, raw := range stream.Messages {
				q.deliver(ctx, handler, messageFromStream(raw, 1))
			}
		}
	}
}

// Reclaim periodically scans the pending entries list for messages whose
// delivery stalled longer than the policy backoff. Exhausted messages are
// parked on the dead-letter stream; the rest are claimed and retried. Blocks
// until ctx is cancelled.
func (q *Queue) Reclaim(ctx context.Context, consumer string, handler Handler) error {
	interval := q.policy.RetryBackoff
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := q.reclaimOnce(ctx, consumer, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

func (q *Queue) reclaimOnce(ctx context.Context, consumer string, handler Handler) error {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.stream,
		Group:  q.group,
		Idle:   q.policy.RetryBackoff,
		Start:  "-",
		End:    "+",
		Count:  q.policy.BatchSize,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("failed to list pending messages: %w", err)
	}

	for _, entry := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   q.stream,
			Group:    q.group,
			Consumer: consumer,
			MinIdle:  q.policy.RetryBackoff,
			Messages: []string{entry.ID},
		}).Result()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to claim message %s: %w", entry.ID, err)
		}
		if len(claimed) == 0 {
			// Another consumer claimed it first
			continue
		}

		for _, raw := range claimed {
			if entry.RetryCount >= q.policy.MaxAttempts {
				if err := q.park(ctx, raw, entry.RetryCount); err != nil {
					return err
				}
				continue
			}
			// XCLAIM bumped the delivery counter, so this is attempt RetryCount+1
			q.deliver(ctx, handler, messageFromStream(raw, entry.RetryCount+1))
		}
	}

	return nil
}

// deliver runs the handler and acknowledges on success. A handler error
// leaves the message pending for the reclaim loop.
func (q *Queue) deliver(ctx context.Context, handler Handler, msg Message) {
	if err := handler(ctx, msg); err != nil {
		return
	}
	q.client.XAck(ctx, q.stream, q.group, msg.ID)
}

// park moves an exhausted message to the dead-letter stream and acknowledges
// it on the source stream so it is never redelivered automatically.
func (q *Queue) park(ctx context.Context, raw redis.XMessage, attempts int64) error {
	msg := messageFromStream(raw, attempts)

	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.dlq,
		Values: map[string]any{
			"ref":       msg.Ref,
			"kind":      msg.Kind,
			"payload":   string(msg.Payload),
			"origin_id": msg.ID,
			"attempts":  attempts,
			"reason":    fmt.Sprintf("exhausted %d delivery attempts", q.policy.MaxAttempts),
			"timestamp": time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to park message %s: %w", msg.ID, err)
	}

	if err := q.client.XAck(ctx, q.stream, q.group, msg.ID).Err(); err != nil {
		return fmt.Errorf("failed to ack parked message %s: %w", msg.ID, err)
	}
	return nil
}

// Stats reports queue depth by state for the management view.
type Stats struct {
	Stream    string `json:"stream"`
	Group     string `json:"group"`
	Length    int64  `json:"length"`
	Waiting   int64  `json:"waiting"`
	Active    int64  `json:"active"`
	Completed int64  `json:"completed"`
	Failed    int64  `json:"failed"`
}

func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	length, err := q.client.XLen(ctx, q.stream).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read stream length: %w", err)
	}

	var entriesRead, lag, pendingCount int64
	groups, err := q.client.XInfoGroups(ctx, q.stream).Result()
	if err != nil && !isMissingStreamErr(err) {
		return Stats{}, fmt.Errorf("failed to read group info: %w", err)
	}
	for _, g := range groups {
		if g.Name == q.group {
			entriesRead = g.EntriesRead
			lag = g.Lag
			pendingCount = g.Pending
			break
		}
	}

	failed, err := q.client.XLen(ctx, q.dlq).Result()
	if err != nil && err != redis.Nil {
		return Stats{}, fmt.Errorf("failed to read dead-letter length: %w", err)
	}

	return buildStats(q.stream, q.group, length, entriesRead, lag, pendingCount, failed), nil
}

// buildStats derives the per-state counts from raw stream counters. Lag can
// be reported negative by Redis after trimming, so both derived values clamp
// at zero.
func buildStats(stream, group string, length, entriesRead, lag, pending, failed int64) Stats {
	if lag < 0 {
		lag = 0
	}
	completed := entriesRead - pending
	if completed < 0 {
		completed = 0
	}
	return Stats{
		Stream:    stream,
		Group:     group,
		Length:    length,
		Waiting:   lag,
		Active:    pending,
		Completed: completed,
		Failed:    failed,
	}
}

// FailedMessage is a dead-lettered entry surfaced on the management view.
type FailedMessage struct {
	ID       string `json:"id"`
	Ref      string `json:"ref"`
	Kind     string `json:"kind"`
	OriginID string `json:"origin_id"`
	Attempts int64  `json:"attempts"`
	Reason   string `json:"reason"`
}

// FailedMessages returns the most recent dead-lettered entries, newest first.
func (q *Queue) FailedMessages(ctx context.Context, count int64) ([]FailedMessage, error) {
	raw, err := q.client.XRevRangeN(ctx, q.dlq, "+", "-", count).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read dead-letter stream: %w", err)
	}

	failed := make([]FailedMessage, 0, len(raw))
	for _, msg := range raw {
		failed = append(failed, failedFromStream(msg))
	}
	return failed, nil
}

// PendingMessage is an in-flight delivery surfaced on the management view.
type PendingMessage struct {
	ID       string
	Consumer string
	Idle     time.Duration
	Attempts int64
}

// PendingMessages returns up to count entries currently awaiting ack.
func (q *Queue) PendingMessages(ctx context.Context, count int64) ([]PendingMessage, error) {
	raw, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.stream,
		Group:  q.group,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pending messages: %w", err)
	}

	pending := make([]PendingMessage, 0, len(raw))
	for _, entry := range raw {
		pending = append(pending, PendingMessage{
			ID:       entry.ID,
			Consumer: entry.Consumer,
			Idle:     entry.Idle,
			Attempts: entry.RetryCount,
		})
	}
	return pending, nil
}

func messageFromStream(raw redis.XMessage, attempt int64) Message {
	return Message{
		ID:      raw.ID,
		Ref:     stringValue(raw.Values, "ref"),
		Kind:    stringValue(raw.Values, "kind"),
		Payload: []byte(stringValue(raw.Values, "payload")),
		Attempt: attempt,
	}
}

func failedFromStream(raw redis.XMessage) FailedMessage {
	return FailedMessage{
		ID:       raw.ID,
		Ref:      stringValue(raw.Values, "ref"),
		Kind:     stringValue(raw.Values, "kind"),
		OriginID: stringValue(raw.Values, "origin_id"),
		Attempts: intValue(raw.Values, "attempts"),
		Reason:   stringValue(raw.Values, "reason"),
	}
}

func stringValue(values map[string]any, key string) string {
	if v, ok := values[key].(string); ok {
		return v
	}
	return ""
}

func intValue(values map[string]any, key string) int64 {
	s, ok := values[key].(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func isMissingStreamErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such key")
}
