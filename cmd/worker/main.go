package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/datavend/backend/internal/application/notify"
	"github.com/datavend/backend/internal/application/reconcile"
	"github.com/datavend/backend/internal/bootstrap"
	domainErrors "github.com/datavend/backend/internal/domain/errors"
	"github.com/datavend/backend/internal/domain/event"
	infraRedis "github.com/datavend/backend/internal/infrastructure/redis"
	"github.com/datavend/backend/internal/notification"
	"github.com/datavend/backend/internal/repository/postgres"
)

const (
	queueStatsInterval       = 15 * time.Second
	idempotencySweepInterval = 1 * time.Hour
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "datavend-worker", "datavend_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	orderRepo := postgres.NewOrderRepository(app.Pool)
	resellerRepo := postgres.NewResellerRepository(app.Pool)
	bundleRepo := postgres.NewBundleRepository(app.Pool)
	ledgerRepo := postgres.NewLedgerRepository(app.Pool)
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Use cases ---
	processEventUC := reconcile.NewProcessEventUseCase(
		orderRepo, resellerRepo, bundleRepo, ledgerRepo, outboxRepo, txManager,
		app.Config.Gateway.Provider, app.Config.Notification.AdminRecipient)
	dispatchUC := notify.NewDispatchUseCase(buildSink(app))

	// --- Queues ---
	paymentsQueue := infraRedis.NewQueue(app.Redis,
		infraRedis.PaymentEventsStream, infraRedis.PaymentEventsGroup, app.Config.Queues.Payments)
	notificationsQueue := infraRedis.NewQueue(app.Redis,
		infraRedis.NotificationsStream, infraRedis.NotificationsGroup, app.Config.Queues.Notifications)
	for _, q := range []*infraRedis.Queue{paymentsQueue, notificationsQueue} {
		if err := q.EnsureGroup(ctx); err != nil {
			app.Logger.Fatal().Err(err).Str("stream", q.Stream()).Msg("Failed to create consumer group")
		}
	}

	relay := notify.NewOutboxRelay(outboxRepo, txManager, notificationsQueue, app.Config.Worker.OutboxBatchSize)

	consumerName := app.Config.InstanceID
	app.Logger.Info().
		Str("payments_stream", paymentsQueue.Stream()).
		Str("notifications_stream", notificationsQueue.Stream()).
		Str("consumer", consumerName).
		Msg("Worker started, listening for messages...")

	// Signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	paymentHandler := newPaymentHandler(app, processEventUC)
	notificationHandler := newNotificationHandler(app, dispatchUC)

	// 1. Payment events: fresh deliveries.
	g.Go(func() error {
		return paymentsQueue.Consume(gCtx, consumerName, paymentHandler)
	})

	// 2. Payment events: stalled deliveries, reclaimed after the backoff.
	g.Go(func() error {
		return paymentsQueue.Reclaim(gCtx, consumerName, paymentHandler)
	})

	// 3. Admin notifications: fresh deliveries.
	g.Go(func() error {
		return notificationsQueue.Consume(gCtx, consumerName, notificationHandler)
	})

	// 4. Admin notifications: stalled deliveries.
	g.Go(func() error {
		return notificationsQueue.Reclaim(gCtx, consumerName, notificationHandler)
	})

	// 5. Outbox relay (polls the outbox table and feeds the notifications queue).
	g.Go(func() error {
		return runOutboxRelay(gCtx, app, relay)
	})

	// 6. Queue depth gauges.
	g.Go(func() error {
		return runQueueStats(gCtx, app, paymentsQueue, notificationsQueue)
	})

	// 7. Expired idempotency keys sweeper.
	g.Go(func() error {
		return runIdempotencySweep(gCtx, app, idempotencyRepo)
	})

	// 8. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}

// newPaymentHandler builds the handler that settles orders from verified
// gateway events. Returning nil acknowledges the message; returning an error
// leaves it pending so the reclaim loop retries it and eventually parks it on
// the dead-letter stream.
func newPaymentHandler(app *bootstrap.App, processUC *reconcile.ProcessEventUseCase) infraRedis.Handler {
	logger := app.Logger
	stream := infraRedis.PaymentEventsStream
	tracer := otel.Tracer("github.com/datavend/backend/cmd/worker")
	return func(ctx context.Context, msg infraRedis.Message) error {
		if msg.Attempt > 1 {
			app.Metrics.JobRetries.WithLabelValues(stream).Inc()
		}

		evt, err := event.Parse(msg.Payload)
		if err != nil {
			// Redelivery cannot fix a body that does not parse.
			logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Dropping malformed event")
			app.Metrics.EventsProcessed.WithLabelValues(stream, "malformed").Inc()
			return nil
		}

		// Queue messages carry no trace context, so each settlement is its
		// own root span.
		ctx, span := tracer.Start(ctx, "payments.settle",
			trace.WithAttributes(
				attribute.String("order.ref", msg.Ref),
				attribute.Int64("message.attempt", msg.Attempt),
			))
		defer span.End()

		// One settlement per order at a time across worker instances. The
		// conditional update would catch a race anyway; the lock just avoids
		// burning attempts on it.
		lock := infraRedis.NewDistributedLock(app.Redis, "order:"+msg.Ref, app.Config.Worker.LockTTL)
		acquired, err := lock.Acquire(ctx)
		if err != nil {
			return err
		}
		if !acquired {
			logger.Warn().Str("ref", msg.Ref).Msg("Could not acquire lock, leaving for redelivery")
			return domainErrors.ErrLockAcquisitionFailed
		}
		defer lock.Release(ctx)

		start := time.Now()
		outcome, err := processUC.Execute(ctx, evt)
		if err != nil {
			span.RecordError(err)
			logger.Error().Err(err).Str("ref", msg.Ref).Int64("attempt", msg.Attempt).Msg("Failed to process event")
			app.Metrics.EventsProcessed.WithLabelValues(stream, "error").Inc()
			return err
		}
		app.Metrics.ReconcileDuration.WithLabelValues(stream).Observe(time.Since(start).Seconds())

		switch outcome.Status {
		case reconcile.OutcomeApplied:
			o := outcome.Order
			if evt.Charge != nil && evt.Charge.Amount != o.Amount {
				logger.Warn().
					Str("order_number", o.OrderNumber).
					Int64("charged", evt.Charge.Amount).
					Int64("expected", o.Amount).
					Msg("Charge amount differs from order amount")
			}
			logger.Info().
				Str("order_number", o.OrderNumber).
				Int64("amount", o.Amount).
				Int64("commission", o.Commission).
				Msg("Order settled")
			app.Metrics.CommissionPaid.WithLabelValues(o.Currency).Add(float64(o.Commission))
			app.Metrics.EventsProcessed.WithLabelValues(stream, "applied").Inc()
		case reconcile.OutcomeSkipped:
			logger.Info().Str("ref", msg.Ref).Msg("Order already settled, skipping")
			app.Metrics.EventsProcessed.WithLabelValues(stream, "skipped").Inc()
		case reconcile.OutcomeOrphaned:
			logger.Warn().Str("ref", msg.Ref).Msg("No order matches event reference")
			app.Metrics.EventsProcessed.WithLabelValues(stream, "orphaned").Inc()
		default:
			logger.Debug().Str("kind", evt.Name).Msg("Event kind carries no side effects, ignoring")
			app.Metrics.EventsProcessed.WithLabelValues(stream, "ignored").Inc()
		}
		return nil
	}
}

// newNotificationHandler builds the handler that delivers admin notifications
// to the configured sink.
func newNotificationHandler(app *bootstrap.App, dispatchUC *notify.DispatchUseCase) infraRedis.Handler {
	logger := app.Logger
	stream := infraRedis.NotificationsStream
	return func(ctx context.Context, msg infraRedis.Message) error {
		if msg.Attempt > 1 {
			app.Metrics.JobRetries.WithLabelValues(stream).Inc()
		}

		err := dispatchUC.Execute(ctx, msg.Payload)
		if errors.Is(err, domainErrors.ErrMalformedEvent) {
			logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Dropping malformed notification")
			app.Metrics.NotificationsDelivered.WithLabelValues("malformed").Inc()
			return nil
		}
		if err != nil {
			logger.Error().Err(err).Str("ref", msg.Ref).Int64("attempt", msg.Attempt).Msg("Failed to deliver notification")
			app.Metrics.NotificationsDelivered.WithLabelValues("error").Inc()
			return err
		}

		logger.Info().Str("ref", msg.Ref).Str("kind", msg.Kind).Msg("Notification delivered")
		app.Metrics.NotificationsDelivered.WithLabelValues("delivered").Inc()
		return nil
	}
}

func runOutboxRelay(ctx context.Context, app *bootstrap.App, relay *notify.OutboxRelay) error {
	interval := app.Config.Worker.OutboxPollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		published, err := relay.RelayOnce(ctx)
		if err != nil {
			app.Logger.Error().Err(err).Msg("Outbox relay error")
			app.Metrics.OutboxPublished.WithLabelValues("error").Inc()
			continue
		}
		if published > 0 {
			app.Logger.Debug().Int("published", published).Msg("Relayed outbox entries")
			app.Metrics.OutboxPublished.WithLabelValues("published").Add(float64(published))
		}
	}
}

func runQueueStats(ctx context.Context, app *bootstrap.App, queues ...*infraRedis.Queue) error {
	ticker := time.NewTicker(queueStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		for _, q := range queues {
			stats, err := q.Stats(ctx)
			if err != nil {
				app.Logger.Warn().Err(err).Str("stream", q.Stream()).Msg("Failed to read queue stats")
				continue
			}
			jobs := app.Metrics.QueueJobs
			jobs.WithLabelValues(stats.Stream, "waiting").Set(float64(stats.Waiting))
			jobs.WithLabelValues(stats.Stream, "active").Set(float64(stats.Active))
			jobs.WithLabelValues(stats.Stream, "completed").Set(float64(stats.Completed))
			jobs.WithLabelValues(stats.Stream, "failed").Set(float64(stats.Failed))
		}
	}
}

// runIdempotencySweep deletes expired idempotency keys so the table does not
// grow without bound.
func runIdempotencySweep(ctx context.Context, app *bootstrap.App, repo *postgres.IdempotencyRepository) error {
	ticker := time.NewTicker(idempotencySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		removed, err := repo.Cleanup(ctx)
		if err != nil {
			app.Logger.Warn().Err(err).Msg("Idempotency key sweep failed")
			continue
		}
		if removed > 0 {
			app.Logger.Info().Int64("removed", removed).Msg("Swept expired idempotency keys")
		}
	}
}

// buildSink picks the notification sink. Without a configured URL,
// notifications land in the log, which is enough for local runs.
func buildSink(app *bootstrap.App) notify.Sink {
	if app.Config.Notification.SinkURL == "" {
		return notification.NewLogSink(app.Logger)
	}
	return notification.NewHTTPSink(app.Config.Notification)
}
