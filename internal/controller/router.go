package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appOrder "github.com/datavend/backend/internal/application/order"
	"github.com/datavend/backend/internal/domain/bundle"
	"github.com/datavend/backend/internal/domain/ledger"
	"github.com/datavend/backend/internal/domain/order"
	"github.com/datavend/backend/internal/domain/reseller"
	"github.com/datavend/backend/internal/gateway"
	"github.com/datavend/backend/internal/infrastructure/config"
	"github.com/datavend/backend/internal/infrastructure/observability"
	redisq "github.com/datavend/backend/internal/infrastructure/redis"
	customMW "github.com/datavend/backend/internal/middleware"
	"github.com/datavend/backend/internal/repository/postgres"
)

type RouterDeps struct {
	Pool               *pgxpool.Pool
	RedisClient        *redis.Client
	OrderRepo          order.Repository
	BundleRepo         bundle.Repository
	ResellerRepo       reseller.Repository
	LedgerRepo         ledger.Repository
	CreateOrder        *appOrder.CreateOrderUseCase
	Gateways           *gateway.Registry
	PaymentsQueue      *redisq.Queue
	NotificationsQueue *redisq.Queue
	IdempotencyRepo    *postgres.IdempotencyRepository
	IdempotencyTTL     time.Duration
	Metrics            *observability.Metrics
	EnableMetrics      bool
	CORSConfig         config.CORSConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	webhookH := NewWebhookController(deps.Gateways, deps.PaymentsQueue, deps.Metrics)
	orderH := NewOrderController(deps.CreateOrder, deps.OrderRepo, deps.LedgerRepo, deps.Metrics)
	bundleH := NewBundleController(deps.BundleRepo)
	resellerH := NewResellerController(deps.ResellerRepo, deps.LedgerRepo)
	queueH := NewQueueController(deps.PaymentsQueue, deps.NotificationsQueue)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	if deps.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Gateway-facing ingest. Not under /api/v1: the path is registered with
	// the gateway and never versioned.
	r.Post("/webhooks/{gateway}", webhookH.Receive)

	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating endpoints.
		idempotencyMW := customMW.Idempotency(deps.IdempotencyRepo, deps.IdempotencyTTL)

		// Catalog
		r.Get("/bundles", bundleH.List)

		// Orders
		r.With(idempotencyMW).Post("/orders", orderH.Create)
		r.Get("/orders", orderH.List)
		r.Get("/orders/{orderNumber}", orderH.Get)
		r.Get("/orders/{orderNumber}/transactions", orderH.GetTransactions)

		// Management
		r.Route("/admin", func(r chi.Router) {
			r.Get("/queues", queueH.Stats)
			r.Get("/resellers/{id}", resellerH.Get)
			r.Get("/resellers/{id}/transactions", resellerH.GetTransactions)
		})
	})

	return r
}
