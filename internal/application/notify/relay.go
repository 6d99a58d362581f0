package notify

import (
	"context"
	"encoding/json"

	"github.com/datavend/backend/internal/domain/outbox"
)

// OutboxRelay moves committed outbox rows onto the notifications queue. Rows
// are claimed inside a transaction, and the pending query locks them with
// SKIP LOCKED, so concurrent relays never pick up the same entry.
type OutboxRelay struct {
	outboxRepo outbox.Repository
	txManager  TransactionManager
	queue      Enqueuer
	batchSize  int
}

// NewOutboxRelay creates a new OutboxRelay.
func NewOutboxRelay(
	outboxRepo outbox.Repository,
	txManager TransactionManager,
	queue Enqueuer,
	batchSize int,
) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &OutboxRelay{
		outboxRepo: outboxRepo,
		txManager:  txManager,
		queue:      queue,
		batchSize:  batchSize,
	}
}

// RelayOnce publishes one batch of pending entries and returns how many
// reached the queue. An entry the queue refuses is marked failed and left for
// the next cycle; the rest of the batch still goes out.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	published := 0
	err := r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		entries, err := r.outboxRepo.GetPending(txCtx, r.batchSize)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			payload, err := json.Marshal(entry.Payload)
			if err != nil {
				if err := r.outboxRepo.MarkFailed(txCtx, entry.ID); err != nil {
					return err
				}
				continue
			}
			// The queue write uses the outer context: Redis is not part of
			// the database transaction.
			if _, err := r.queue.Enqueue(ctx, entry.ID.String(), entry.EventType, payload); err != nil {
				if err := r.outboxRepo.MarkFailed(txCtx, entry.ID); err != nil {
					return err
				}
				continue
			}
			if err := r.outboxRepo.MarkPublished(txCtx, entry.ID); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	return published, err
}
