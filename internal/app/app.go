// Package app wires the goodssearch server together and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/goodssearch/internal/config"
	"github.com/utafrali/goodssearch/internal/event"
	handler "github.com/utafrali/goodssearch/internal/handler/http"
	"github.com/utafrali/goodssearch/pkg/health"
	pkgkafka "github.com/utafrali/goodssearch/pkg/kafka"
	"github.com/utafrali/goodssearch/pkg/middleware"
	"github.com/utafrali/goodssearch/pkg/tracing"
)

const idempotencyKeyPrefix = "goodssearch:event:"

// Version is reported on traces. Overridden at build time with -ldflags.
var Version = "dev"

// App wires together all dependencies and runs the search service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	core           *Core
	consumers      []*pkgkafka.Consumer
	dlq            *pkgkafka.DLQProducer
	httpServer     *http.Server
	shutdownTracer func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	tcfg := tracing.DefaultConfig(ServiceName)
	tcfg.ServiceVersion = Version
	tcfg.Environment = cfg.Environment
	tcfg.SampleRate = cfg.OTELSampleRate
	tcfg.Enabled = cfg.OTELEnabled
	if cfg.OTELEndpoint != "" {
		tcfg.OTLPEndpoint = cfg.OTELEndpoint
	}
	shutdownTracer, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	core, err := NewCore(ctx, cfg, logger)
	if err != nil {
		_ = shutdownTracer(ctx)
		return nil, err
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		core:           core,
		shutdownTracer: shutdownTracer,
	}

	healthHandler := health.NewHandler()
	core.RegisterChecks(healthHandler)

	if cfg.KafkaEnabled {
		a.initConsumers()
		healthHandler.RegisterOptional("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
	}

	router := handler.NewRouter(core.Service, healthHandler, handler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		CORS:           middleware.CORSConfig{AllowedOrigins: cfg.CORSOrigins},
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

// initConsumers creates one consumer per item topic. Redelivered events
// are skipped by event id, through Redis when the cache is enabled.
func (a *App) initConsumers() {
	var store pkgkafka.IdempotencyStore
	if a.core.Redis != nil {
		store = pkgkafka.NewRedisIdempotencyStore(a.core.Redis, idempotencyKeyPrefix, a.cfg.IdempotencyTTL)
	} else {
		store = pkgkafka.NewMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	}

	var opts []pkgkafka.ConsumerOption
	if a.cfg.KafkaDLQ {
		a.dlq = pkgkafka.NewDLQProducer(a.cfg.KafkaBrokers, a.logger)
		opts = append(opts, pkgkafka.WithDeadLetter(a.dlq))
	}

	items := event.NewConsumer(a.core.Service, a.logger)
	h := pkgkafka.IdempotentHandler(store, items.Handle, a.logger)

	for _, topic := range event.Topics() {
		a.consumers = append(a.consumers, pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  a.cfg.KafkaBrokers,
			GroupID:  a.cfg.KafkaGroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}, h, a.logger, opts...))
	}
	a.logger.Info("kafka consumers initialized",
		slog.Any("brokers", a.cfg.KafkaBrokers),
		slog.String("group_id", a.cfg.KafkaGroupID),
		slog.Int("topic_count", len(a.consumers)),
		slog.Bool("dlq", a.dlq != nil),
	)
}

// Run starts the HTTP server and Kafka consumers, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer %s: %w", c.Topic(), err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("component failed", slog.String("error", runErr.Error()))
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error",
				slog.String("topic", c.Topic()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dlq producer: %w", err))
		}
	}

	if err := a.core.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.shutdownTracer(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("flush traces: %w", err))
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}
