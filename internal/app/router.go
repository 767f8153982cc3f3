package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/toko-checkout/internal/checkout"
	"github.com/noah-isme/toko-checkout/internal/common"
	"github.com/noah-isme/toko-checkout/internal/health"
	"github.com/noah-isme/toko-checkout/internal/obs"
	"github.com/noah-isme/toko-checkout/internal/ratelimit"
	"github.com/noah-isme/toko-checkout/internal/security"
)

// RouterOptions tunes the HTTP surface. A nil Gatherer disables /metrics
// and the HTTP metrics middleware.
type RouterOptions struct {
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Tracing    bool
}

// NewRouter builds the chi router serving the checkout API.
func NewRouter(deps *Dependencies, opts RouterOptions) http.Handler {
	cfg := deps.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if opts.Gatherer != nil {
		httpMetrics := obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), opts.Registerer)
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: deps.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", common.IdempotencyHeader, middleware.RequestIDHeader},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(security.Headers{Enable: cfg.SecurityHeadersEnabled, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	healthHandler := health.Handler{Probes: deps.Probes}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	handler := &checkout.Handler{Svc: deps.Checkout, Validate: checkout.NewValidator()}
	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}
	limit := ratelimit.Handler{
		Limiter: deps.Limiter,
		Config:  ratelimit.Config{Key: ratelimit.ByClientIP, Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
		OnError: func(err error) {
			deps.Logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}

	routes := func(api chi.Router) {
		api.Post("/calculate-price", handler.CalculatePrice)
		api.With(limit.Middleware, idem.Middleware).Post("/purchase", handler.Purchase)
	}
	r.Group(routes)
	r.Route("/api/v1", routes)
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
