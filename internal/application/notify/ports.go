package notify

import "context"

// TransactionManager handles database transactions.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Enqueuer is the producer side of the notifications queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, ref, kind string, payload []byte) (string, error)
}

// Sink is the transport that actually delivers a notification to the admin
// endpoint.
type Sink interface {
	Deliver(ctx context.Context, payload map[string]any) error
}
