package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	AccessTokenTTL     time.Duration
	CORSAllowedOrigins []string

	CartTTL       time.Duration
	CartLockTTL   time.Duration
	CurrencyCode  string
	CurrencyScale int32

	IdempotencyTTL  time.Duration
	ReportsCacheTTL time.Duration
	ReportsDefault  int
	CatalogCacheTTL time.Duration

	RateLimitRequests         int
	RateLimitWindow           time.Duration
	CheckoutRateLimitRequests int
	CheckoutRateLimitWindow   time.Duration

	DBAutoMigrate        bool
	DBMaxConns           int
	ReceiptQueue         string
	ReceiptWebhookURL    string
	ReceiptWebhookSecret string
	WorkerConcurrency    int
	BodyLimitBytes       int64

	Obs        Obs
	Security   Security
	Resilience Resilience
}

// Obs groups logging, metrics, tracing and profiling settings (OBS_*).
type Obs struct {
	LogFormat         string
	LogLevel          string
	MetricsEnabled    bool
	MetricsNamespace  string
	MetricsBuckets    string
	TracingEnabled    bool
	TracingExporter   string
	OTLPEndpoint      string
	SamplingRatio     float64
	PprofEnabled      bool
	PprofUser         string
	PprofPass         string
	ReadyDBTimeout    time.Duration
	ReadyRedisTimeout time.Duration
}

// Security groups response hardening settings.
type Security struct {
	HeadersEnabled        bool
	HSTSEnabled           bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
}

// Resilience tunes retries and the circuit breaker on outbound webhook calls.
type Resilience struct {
	WebhookTimeout     time.Duration
	RetryBase          time.Duration
	RetryMaxAttempts   int
	RetryJitterRatio   float64
	CircuitMinRequests int
	CircuitFailureRate float64
	CircuitOpenFor     time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          valueOrDefault(k.String("JWT_ISSUER"), "pos-api"),
		JWTAudience:        valueOrDefault(k.String("JWT_AUDIENCE"), "pos-terminal"),
		AccessTokenTTL:     parseDuration(k.String("ACCESS_TOKEN_TTL"), "12h"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CartTTL:       parseDuration(k.String("CART_TTL"), "168h"),
		CartLockTTL:   parseDuration(k.String("CART_LOCK_TTL"), "10s"),
		CurrencyCode:  strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "INR")),
		CurrencyScale: int32(parseInt(k.String("CURRENCY_SCALE"), 2)),

		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		ReportsCacheTTL: parseDuration(k.String("REPORTS_CACHE_TTL"), "5m"),
		ReportsDefault:  parseInt(k.String("REPORTS_DEFAULT_RANGE_DAYS"), 30),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "2m"),

		RateLimitRequests:         parseInt(k.String("RATE_LIMIT_REQUESTS"), 600),
		RateLimitWindow:           parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		CheckoutRateLimitRequests: parseInt(k.String("RATE_LIMIT_CHECKOUT_REQUESTS"), 30),
		CheckoutRateLimitWindow:   parseDuration(k.String("RATE_LIMIT_CHECKOUT_WINDOW"), "1m"),

		DBAutoMigrate:        parseBool(k.String("DB_AUTO_MIGRATE")),
		DBMaxConns:           parseInt(k.String("DB_MAX_CONNS"), 0),
		ReceiptQueue:         valueOrDefault(k.String("RECEIPT_QUEUE"), "receipts"),
		ReceiptWebhookURL:    strings.TrimSpace(k.String("RECEIPT_WEBHOOK_URL")),
		ReceiptWebhookSecret: k.String("RECEIPT_WEBHOOK_SECRET"),
		WorkerConcurrency:    parseInt(k.String("WORKER_CONCURRENCY"), 5),
		BodyLimitBytes:       int64(parseInt(k.String("HTTP_BODY_LIMIT_BYTES"), 1<<20)),

		Obs: Obs{
			LogFormat:         valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:          valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsEnabled:    parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsNamespace:  valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "pos"),
			MetricsBuckets:    k.String("OBS_METRICS_BUCKETS_MS"),
			TracingEnabled:    parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
			TracingExporter:   valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			OTLPEndpoint:      strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:     parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
			PprofEnabled:      parseBoolDefault(k.String("OBS_ENABLE_PPROF"), false),
			PprofUser:         k.String("SECURE_PPROF_BASIC_AUTH_USER"),
			PprofPass:         k.String("SECURE_PPROF_BASIC_AUTH_PASS"),
			ReadyDBTimeout:    parseDuration(k.String("HEALTH_READY_DB_TIMEOUT"), "500ms"),
			ReadyRedisTimeout: parseDuration(k.String("HEALTH_READY_REDIS_TIMEOUT"), "300ms"),
		},
		Security: Security{
			HeadersEnabled:        parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
			HSTSEnabled:           parseBool(k.String("SECURITY_HSTS_ENABLED")),
			HSTSMaxAge:            parseInt(k.String("SECURITY_HSTS_MAX_AGE"), 31536000),
			HSTSIncludeSubdomains: parseBool(k.String("SECURITY_HSTS_INCLUDE_SUBDOMAINS")),
		},
		Resilience: Resilience{
			WebhookTimeout:     parseDuration(k.String("RECEIPT_WEBHOOK_TIMEOUT"), "5s"),
			RetryBase:          parseDuration(k.String("RETRY_BASE"), "200ms"),
			RetryMaxAttempts:   parseInt(k.String("RETRY_MAX_ATTEMPTS"), 3),
			RetryJitterRatio:   parseFloat(k.String("RETRY_JITTER_RATIO"), 0.2),
			CircuitMinRequests: parseInt(k.String("CIRCUIT_WEBHOOK_MIN_REQUESTS"), 10),
			CircuitFailureRate: parseFloat(k.String("CIRCUIT_WEBHOOK_FAILURE_RATE"), 0.5),
			CircuitOpenFor:     parseDuration(k.String("CIRCUIT_WEBHOOK_OPEN_FOR"), "30s"),
		},
	}

	if cfg.CurrencyScale < 0 {
		return nil, errors.New("CURRENCY_SCALE must not be negative")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// RedisEnabled reports whether a Redis URL was configured.
func (c *Config) RedisEnabled() bool {
	return c != nil && c.RedisURL != ""
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
