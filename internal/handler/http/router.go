// Package http exposes the search facade over a chi router.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/goodssearch/pkg/health"
	"github.com/utafrali/goodssearch/pkg/middleware"
)

// ServiceName labels HTTP metrics and spans.
const ServiceName = "goodssearch"

// RouterConfig tunes the router.
type RouterConfig struct {
	RequestTimeout time.Duration
	CORS           middleware.CORSConfig
	// Gatherer serves /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// NewRouter creates a chi router with all search routes registered.
func NewRouter(
	searcher Searcher,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	searchHandler := NewSearchHandler(searcher, logger)

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Post("/page", searchHandler.Search)
		r.Put("/goods/{id}", searchHandler.IndexGoods)
		r.Delete("/goods/{id}", searchHandler.RemoveGoods)
	})

	return r
}
