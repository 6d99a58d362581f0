// Package bootstrap wires the shared process skeleton: config, logging,
// tracing, metrics, and the database and Redis connections both binaries need.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/datavend/backend/internal/infrastructure/config"
	"github.com/datavend/backend/internal/infrastructure/observability"
	infraRedis "github.com/datavend/backend/internal/infrastructure/redis"
	"github.com/datavend/backend/internal/repository/postgres"
)

// App holds everything the api and worker binaries share. Each binary builds
// its own repositories and use cases on top of it.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics
}

// New loads configuration and opens the database and Redis connections.
// Tracing failures are logged and skipped; an unreachable Jaeger endpoint
// should not keep payments from settling.
func New(ctx context.Context, serviceName, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info().Str("service", serviceName).Msg("Starting")

	initTracing(ctx, cfg, serviceName, logger)

	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Msg("Connected to PostgreSQL")

	redisClient, err := infraRedis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Msg("Connected to Redis")

	return &App{
		Config:  cfg,
		Logger:  logger,
		Pool:    pool,
		Redis:   redisClient,
		Metrics: observability.NewMetrics(metricsNamespace, nil),
	}, nil
}

func initTracing(ctx context.Context, cfg *config.Config, serviceName string, logger zerolog.Logger) {
	if !cfg.Observability.EnableTracing {
		return
	}
	tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		return
	}
	go func() {
		<-ctx.Done()
		observability.Shutdown(context.Background(), tp)
	}()
	logger.Info().Msg("Tracing enabled")
}

// Close releases the shared connections.
func (a *App) Close() {
	a.Redis.Close()
	a.Pool.Close()
}
