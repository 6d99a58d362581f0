package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appOrder "github.com/datavend/backend/internal/application/order"
	"github.com/datavend/backend/internal/bootstrap"
	"github.com/datavend/backend/internal/controller"
	"github.com/datavend/backend/internal/gateway"
	infraRedis "github.com/datavend/backend/internal/infrastructure/redis"
	"github.com/datavend/backend/internal/repository/postgres"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "datavend-api", "datavend")
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
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)

	// --- Payment gateway ---
	gw := buildGateway(app)
	registry := gateway.NewRegistry(gw)

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

	// --- Application services ---
	createOrderUC := appOrder.NewCreateOrderUseCase(
		orderRepo, resellerRepo, bundleRepo, gw, app.Config.Gateway.CallbackURL)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:               app.Pool,
		RedisClient:        app.Redis,
		OrderRepo:          orderRepo,
		BundleRepo:         bundleRepo,
		ResellerRepo:       resellerRepo,
		LedgerRepo:         ledgerRepo,
		CreateOrder:        createOrderUC,
		Gateways:           registry,
		PaymentsQueue:      paymentsQueue,
		NotificationsQueue: notificationsQueue,
		IdempotencyRepo:    idempotencyRepo,
		IdempotencyTTL:     app.Config.Server.IdempotencyTTL,
		Metrics:            app.Metrics,
		EnableMetrics:      app.Config.Observability.EnableMetrics,
		CORSConfig:         app.Config.Server.CORS,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}

// buildGateway picks the configured payment gateway. The mock signs webhooks
// with the same HMAC scheme as Paystack, so local runs exercise the full
// ingest path.
func buildGateway(app *bootstrap.App) gateway.Gateway {
	if app.Config.Gateway.Provider == "mock" {
		return gateway.NewMockGateway("mock", app.Config.Gateway.SecretKey)
	}
	return gateway.NewPaystack(app.Config.Gateway, app.Metrics)
}
