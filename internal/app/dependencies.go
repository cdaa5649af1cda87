// Package app opens the shared infrastructure used by the API and the worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/config"
	"github.com/noah-isme/backend-pos/internal/db"
	dbgen "github.com/noah-isme/backend-pos/internal/db/gen"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/resilience"
)

// Dependencies holds the connections shared across modules. Redis is nil when
// REDIS_URL is unset.
type Dependencies struct {
	Config  *config.Config
	Logger  zerolog.Logger
	DB      *pgxpool.Pool
	Queries *dbgen.Queries
	Redis   *redis.Client
}

// Open connects to Postgres and, when configured, Redis. Migrations run first
// when DB_AUTO_MIGRATE is set. The returned close function releases both.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger, applicationName string) (*Dependencies, func(), error) {
	if cfg == nil {
		return nil, nil, errors.New("app: config is required")
	}
	if cfg.Obs.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
		resilience.MustRegisterMetrics(cfg.Obs.MetricsNamespace, nil)
	}

	if cfg.DBAutoMigrate {
		if err := db.Up(cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		logger.Info().Msg("migrations applied")
	}

	pool, err := OpenPostgres(ctx, cfg, applicationName)
	if err != nil {
		return nil, nil, err
	}
	rdb, err := OpenRedis(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	deps := &Dependencies{Config: cfg, Logger: logger, DB: pool, Queries: dbgen.New(pool), Redis: rdb}
	closeFn := func() {
		if rdb != nil {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}
		pool.Close()
	}
	return deps, closeFn, nil
}

// OpenPostgres builds a traced pgx pool and verifies connectivity.
func OpenPostgres(ctx context.Context, cfg *config.Config, applicationName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	tracer := obs.PGXTracer{}
	if cfg.Obs.MetricsEnabled {
		tracer.Duration = obs.NewDBMetrics(cfg.Obs.MetricsNamespace, prometheus.DefaultRegisterer)
	}
	poolConfig.ConnConfig.Tracer = tracer
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName
	if cfg.DBMaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.DBMaxConns)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// OpenRedis returns nil without error when Redis is not configured.
func OpenRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	if !cfg.RedisEnabled() {
		logger.Warn().Msg("REDIS_URL not set: carts are kept in memory and receipts are not queued")
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.Obs.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// AsynqRedisOpt derives the asynq connection from REDIS_URL.
func AsynqRedisOpt(cfg *config.Config) (asynq.RedisConnOpt, error) {
	if !cfg.RedisEnabled() {
		return nil, errors.New("app: REDIS_URL is required for the task queue")
	}
	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri for asynq: %w", err)
	}
	return opt, nil
}
