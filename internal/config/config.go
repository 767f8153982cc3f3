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

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Payment modes.
const (
	PaymentSandbox = "sandbox"
	PaymentLive    = "live"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	CORSAllowedOrigins []string

	StoreDriver         string
	DatabaseURL         string
	DatabaseAutoMigrate bool
	RedisURL            string
	CatalogCacheTTL     time.Duration

	PaymentMode         string
	CurrencyCode        string
	StripeSecretKey     string
	StripePaymentMethod string
	PayPalClientID      string
	PayPalClientSecret  string
	PayPalBaseURL       string
	PayPalTimeout       time.Duration
	PayPalMaxAttempts   int

	RateLimitWindow        time.Duration
	RateLimitMax           int
	IdempotencyTTL         time.Duration
	BodyLimitBytes         int64
	SecurityHeadersEnabled bool

	Obs ObsConfig
}

// ObsConfig controls logging, metrics and tracing.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   string
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	SamplingRatio    float64
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
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		StoreDriver:         strings.ToLower(strings.TrimSpace(k.String("STORE_DRIVER"))),
		DatabaseURL:         strings.TrimSpace(k.String("DATABASE_URL")),
		DatabaseAutoMigrate: parseBool(k.String("DATABASE_AUTO_MIGRATE"), true),
		RedisURL:            strings.TrimSpace(k.String("REDIS_URL")),
		CatalogCacheTTL:     parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),

		PaymentMode:         strings.ToLower(valueOrDefault(k.String("PAYMENT_MODE"), PaymentSandbox)),
		CurrencyCode:        strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "EUR")),
		StripeSecretKey:     strings.TrimSpace(k.String("STRIPE_SECRET_KEY")),
		StripePaymentMethod: strings.TrimSpace(k.String("STRIPE_PAYMENT_METHOD")),
		PayPalClientID:      strings.TrimSpace(k.String("PAYPAL_CLIENT_ID")),
		PayPalClientSecret:  strings.TrimSpace(k.String("PAYPAL_CLIENT_SECRET")),
		PayPalBaseURL:       valueOrDefault(k.String("PAYPAL_BASE_URL"), "https://api-m.sandbox.paypal.com"),
		PayPalTimeout:       parseDuration(k.String("PAYPAL_TIMEOUT"), "10s"),
		PayPalMaxAttempts:   parseInt(k.String("PAYPAL_MAX_ATTEMPTS"), 2),

		RateLimitWindow:        parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:           parseInt(k.String("RATE_LIMIT_MAX"), 30),
		IdempotencyTTL:         parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		BodyLimitBytes:         int64(parseInt(k.String("BODY_LIMIT_BYTES"), 16<<10)),
		SecurityHeadersEnabled: parseBool(k.String("SECURITY_HEADERS_ENABLED"), true),

		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsEnabled:   parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "checkout"),
			MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
			TracingEnabled:   parseBool(k.String("OBS_ENABLE_TRACING"), false),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
		},
	}

	if cfg.StoreDriver == "" {
		cfg.StoreDriver = StoreMemory
		if cfg.DatabaseURL != "" {
			cfg.StoreDriver = StorePostgres
		}
	}
	// the test card only exists in Stripe test mode
	if cfg.StripePaymentMethod == "" && cfg.PaymentMode == PaymentSandbox {
		cfg.StripePaymentMethod = "pm_card_visa"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not supported", c.StoreDriver))
	}
	switch c.PaymentMode {
	case PaymentSandbox:
	case PaymentLive:
		if c.StripeSecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET_KEY is required when PAYMENT_MODE=live"))
		}
		if c.StripePaymentMethod == "" {
			errs = append(errs, errors.New("STRIPE_PAYMENT_METHOD is required when PAYMENT_MODE=live"))
		}
		if c.PayPalClientID == "" || c.PayPalClientSecret == "" {
			errs = append(errs, errors.New("PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET are required when PAYMENT_MODE=live"))
		}
	default:
		errs = append(errs, fmt.Errorf("PAYMENT_MODE %q is not supported", c.PaymentMode))
	}
	if c.RateLimitMax <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX must be positive"))
	}
	return errors.Join(errs...)
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
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
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

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
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
