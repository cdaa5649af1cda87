package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-pos/internal/app"
	"github.com/noah-isme/backend-pos/internal/auth"
	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/checkout"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/config"
	"github.com/noah-isme/backend-pos/internal/customer"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/health"
	"github.com/noah-isme/backend-pos/internal/invoice"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/ratelimit"
	"github.com/noah-isme/backend-pos/internal/receipt"
	"github.com/noah-isme/backend-pos/internal/reports"
	"github.com/noah-isme/backend-pos/internal/security"
	"github.com/noah-isme/backend-pos/internal/session"
)

type routerOptions struct {
	Tracing bool
	// Tasks receives receipt jobs; nil disables receipt delivery.
	Tasks receipt.TaskEnqueuer
}

func newRouter(deps *app.Dependencies, opts routerOptions) (http.Handler, error) {
	cfg := deps.Config
	logger := deps.Logger
	queries := deps.Queries

	authSvc, err := auth.NewService(auth.Config{
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
		Issuer:         cfg.JWTIssuer,
		Audience:       cfg.JWTAudience,
	})
	if err != nil {
		return nil, err
	}
	authMiddleware := auth.Middleware{Service: authSvc}

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Queries: queries,
		Cache:   catalog.NewCache(deps.Redis, cfg.CatalogCacheTTL),
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: catalogSvc})

	customerSvc := &customer.Service{Q: queries}
	customerHandler := &customer.Handler{Svc: customerSvc}

	var (
		persister cart.Persister
		locker    cart.Locker
	)
	if deps.Redis != nil {
		persister = cart.RedisPersister{R: deps.Redis, TTL: cfg.CartTTL}
		locker = lock.Redis{R: deps.Redis, MaxWait: cfg.CartLockTTL}
	} else {
		persister = cart.NewMemoryPersister()
		locker = &lock.Local{MaxWait: cfg.CartLockTTL}
	}
	cartSvc := &cart.Service{
		Persister: persister,
		Locker:    locker,
		Catalog:   catalogSvc,
		Customers: customerSvc,
		LockTTL:   cfg.CartLockTTL,
		Logger:    logger,
	}
	cartHandler := &cart.Handler{Svc: cartSvc, Currency: cfg.CurrencyCode}

	notifiers := []events.Notifier{events.LogNotifier{Logger: logger}}
	if opts.Tasks != nil {
		notifiers = append(notifiers, receipt.Enqueuer{Client: opts.Tasks, Queue: cfg.ReceiptQueue})
	}
	bus := &events.Bus{Store: queries, Notifiers: notifiers}

	sessionHandler := &session.Handler{Svc: &session.Service{Q: queries, Events: bus, Logger: logger}}
	checkoutHandler := &checkout.Handler{Svc: &checkout.Service{
		Carts:    cartSvc,
		Store:    checkout.PGStore{DB: deps.DB},
		Events:   bus,
		Currency: cfg.CurrencyCode,
		Scale:    cfg.CurrencyScale,
		Logger:   logger,
	}}
	invoiceHandler := &invoice.Handler{Svc: &invoice.Service{Q: queries}}
	reportsHandler := &reports.Handler{Svc: &reports.Service{
		Q:            queries,
		R:            deps.Redis,
		TTL:          cfg.ReportsCacheTTL,
		DefaultRange: cfg.ReportsDefault,
	}}

	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}
	apiLimit, err := apiRateLimit(deps, cfg)
	if err != nil {
		return nil, err
	}
	checkoutLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: deps.Redis, Prefix: "rl:checkout:"},
		Config: ratelimit.Config{
			Key:    ratelimit.ByOperator(""),
			Window: cfg.CheckoutRateLimitWindow,
			Max:    cfg.CheckoutRateLimitRequests,
		},
		OnError: func(err error) { logger.Warn().Err(err).Msg("checkout rate limiter") },
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.Obs.MetricsEnabled {
		metrics := obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
		r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger, SkipPaths: []string{"/health/live", "/health/ready", "/metrics"}}.Middleware)
	r.Use(security.Headers{
		Enable:                cfg.Security.HeadersEnabled,
		EnableHSTS:            cfg.Security.HSTSEnabled,
		HSTSMaxAge:            cfg.Security.HSTSMaxAge,
		HSTSIncludeSubdomains: cfg.Security.HSTSIncludeSubdomains,
		NoStorePrefixes:       []string{"/api/"},
	}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Total-Count", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	if cfg.Obs.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.Obs.PprofEnabled {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.Obs.PprofUser, cfg.Obs.PprofPass))
	}

	healthHandler := health.Handler{
		Checker:      health.Deps{DB: deps.DB, Redis: deps.Redis},
		DBTimeout:    cfg.Obs.ReadyDBTimeout,
		RedisTimeout: cfg.Obs.ReadyRedisTimeout,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(apiLimit.Middleware)
		v.Use(authMiddleware.RequireAuth)

		v.Get("/auth/me", auth.Me)

		v.Route("/catalog", func(c chi.Router) {
			c.Get("/items", catalogHandler.Items)
			c.Get("/items/{id}", catalogHandler.Item)
			c.Get("/categories", catalogHandler.Categories)
		})

		v.Route("/customers", func(c chi.Router) {
			c.Get("/", customerHandler.List)
			c.Get("/{id}", customerHandler.Get)
			c.With(idem.Middleware).Post("/", customerHandler.Create)
		})

		v.Route("/carts", func(c chi.Router) {
			cartHandler.Routes(c)
			c.With(checkoutLimit.Middleware, idem.Middleware).Post("/{id}/checkout", checkoutHandler.Checkout)
		})

		v.Route("/sessions", sessionHandler.Routes)

		v.Route("/invoices", func(i chi.Router) {
			i.Get("/", invoiceHandler.List)
			i.Get("/{id}", invoiceHandler.Get)
		})

		v.Get("/reports/sales", reportsHandler.Sales)
	})

	return r, nil
}

func apiRateLimit(deps *app.Dependencies, cfg *config.Config) (ratelimit.Handler, error) {
	var (
		store limiter.Store
		err   error
	)
	if deps.Redis != nil {
		store, err = ratelimit.NewRedisStore(deps.Redis, "rl:api")
		if err != nil {
			return ratelimit.Handler{}, fmt.Errorf("rate limit store: %w", err)
		}
	} else {
		store = ratelimit.NewMemoryStore("rl:api")
	}
	return ratelimit.Handler{
		Limiter: ratelimit.FixedWindow{Store: store},
		Config: ratelimit.Config{
			Key:    ratelimit.ByClientIP(""),
			Window: cfg.RateLimitWindow,
			Max:    cfg.RateLimitRequests,
		},
		OnError: func(err error) { deps.Logger.Warn().Err(err).Msg("api rate limiter") },
	}, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
