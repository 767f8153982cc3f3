// Package app wires configuration into the checkout service graph.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/checkout"
	"github.com/noah-isme/toko-checkout/internal/config"
	"github.com/noah-isme/toko-checkout/internal/health"
	"github.com/noah-isme/toko-checkout/internal/lock"
	"github.com/noah-isme/toko-checkout/internal/obs"
	"github.com/noah-isme/toko-checkout/internal/payment"
	"github.com/noah-isme/toko-checkout/internal/pricing"
	"github.com/noah-isme/toko-checkout/internal/ratelimit"
	"github.com/noah-isme/toko-checkout/internal/repo"
	"github.com/noah-isme/toko-checkout/internal/resilience"
	"github.com/noah-isme/toko-checkout/migrations"
)

// Dependencies holds the long lived resources shared by the HTTP layer.
type Dependencies struct {
	Config   *config.Config
	Logger   zerolog.Logger
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Catalog  catalog.Finder
	Checkout *checkout.Service
	Limiter  ratelimit.Allower
	Probes   map[string]health.Probe
}

// Build connects to the configured backends and assembles the service graph.
// Redis is optional; without it the catalog is not cached, idempotency is
// disabled and rate limits are kept per process.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg, Logger: logger, Probes: map[string]health.Probe{}}

	store, err := deps.openStore(ctx)
	if err != nil {
		deps.Close()
		return nil, err
	}
	if err := deps.openRedis(ctx); err != nil {
		deps.Close()
		return nil, err
	}

	finder := catalog.Finder(store)
	if deps.Redis != nil {
		finder = catalog.CachedFinder{
			Next:  store,
			Cache: catalog.NewCache(deps.Redis, cfg.CatalogCacheTTL),
			Lock:  lock.Locker{R: deps.Redis},
		}
		deps.Limiter = ratelimit.Limiter{Client: deps.Redis, Prefix: "ratelimit:"}
	} else {
		deps.Limiter = ratelimit.NewMemoryLimiter("ratelimit")
	}
	deps.Catalog = finder

	dispatcher, err := NewDispatcher(cfg)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Checkout = &checkout.Service{
		Prices:   &pricing.Calculator{Products: finder, Coupons: finder, Taxes: finder},
		Payments: dispatcher,
	}
	return deps, nil
}

func (d *Dependencies) openStore(ctx context.Context) (catalog.Finder, error) {
	if d.Config.StoreDriver != config.StorePostgres {
		d.Logger.Info().Msg("catalog store: in-memory fixtures")
		return repo.NewMemoryWithFixtures(repo.DefaultFixtures()), nil
	}
	if d.Config.DatabaseAutoMigrate {
		if err := Migrate(d.Config.DatabaseURL); err != nil {
			return nil, err
		}
	}
	poolConfig, err := pgxpool.ParseConfig(d.Config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "toko-checkout"

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
	d.DB = pool
	d.Probes["db"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	d.Logger.Info().Msg("catalog store: postgres")
	return repo.NewPostgres(pool), nil
}

func (d *Dependencies) openRedis(ctx context.Context) error {
	if d.Config.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(d.Config.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		d.Logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if d.Config.Obs.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			d.Logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("ping redis: %w", err)
	}
	d.Redis = client
	d.Probes["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return nil
}

// NewDispatcher builds the payment dispatcher for the configured mode.
func NewDispatcher(cfg *config.Config) (*payment.Dispatcher, error) {
	switch cfg.PaymentMode {
	case config.PaymentSandbox:
		return &payment.Dispatcher{PayPal: payment.SandboxPayPal{}, Stripe: payment.SandboxStripe{}}, nil
	case config.PaymentLive:
		return &payment.Dispatcher{
			PayPal: &payment.PayPalClient{
				HTTP:         resilience.NewGatewayClient("paypal", cfg.PayPalTimeout, cfg.PayPalMaxAttempts),
				BaseURL:      cfg.PayPalBaseURL,
				ClientID:     cfg.PayPalClientID,
				ClientSecret: cfg.PayPalClientSecret,
				Currency:     cfg.CurrencyCode,
			},
			Stripe: payment.NewStripeClient(cfg.StripeSecretKey, cfg.CurrencyCode, cfg.StripePaymentMethod),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported payment mode %q", cfg.PaymentMode)
	}
}

// Migrate applies the embedded catalog migrations.
func Migrate(databaseURL string) error {
	m, err := repo.NewMigrator(migrations.FS, databaseURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()
	if err := repo.RunMigrations(m); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close releases database and Redis connections.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			d.Logger.Error().Err(err).Msg("close redis")
		}
		d.Redis = nil
	}
	if d.DB != nil {
		d.DB.Close()
		d.DB = nil
	}
}
