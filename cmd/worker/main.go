package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/app"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/config"
	"github.com/noah-isme/backend-pos/internal/invoice"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/receipt"
	"github.com/noah-isme/backend-pos/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Obs.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "pos-worker",
			Endpoint:      cfg.Obs.OTLPEndpoint,
			Exporter:      cfg.Obs.TracingExporter,
			SamplingRatio: cfg.Obs.SamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	deps, closeDeps, err := app.Open(ctx, cfg, logger, "pos-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer closeDeps()

	redisOpt, err := app.AsynqRedisOpt(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure task queue")
	}

	worker := &receipt.Worker{
		Invoices: &invoice.Service{Q: deps.Queries},
		Email:    common.LogEmailSender{Logger: logger},
		Webhook:  newWebhook(cfg, logger),
		Scale:    cfg.CurrencyScale,
		Logger:   logger,
	}
	mux := asynq.NewServeMux()
	worker.Register(mux)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{cfg.ReceiptQueue: 1},
		BaseContext: func() context.Context { return ctx },
		Logger:      asynqLogger{log: logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Warn().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
	})

	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	logger.Info().Str("queue", cfg.ReceiptQueue).Int("concurrency", cfg.WorkerConcurrency).Msg("worker started")

	<-ctx.Done()
	logger.Info().Msg("worker shutting down")
	srv.Shutdown()
}

// newWebhook returns nil when no receipt webhook is configured.
func newWebhook(cfg *config.Config, logger zerolog.Logger) *receipt.Webhook {
	if cfg.ReceiptWebhookURL == "" {
		return nil
	}
	rc := cfg.Resilience
	return &receipt.Webhook{
		URL:    cfg.ReceiptWebhookURL,
		Secret: cfg.ReceiptWebhookSecret,
		Retry: resilience.HTTPClient{
			Client:      receipt.NewHTTPClient(rc.WebhookTimeout),
			Breaker:     resilience.NewBreaker(rc.CircuitMinRequests, rc.CircuitFailureRate, rc.CircuitOpenFor).WithTarget("receipt-webhook").WithLogger(logger),
			BaseBackoff: rc.RetryBase,
			MaxAttempts: rc.RetryMaxAttempts,
			Jitter:      rc.RetryJitterRatio,
			Timeout:     rc.WebhookTimeout,
		},
	}
}
