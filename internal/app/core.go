package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/goodssearch/internal/builder"
	"github.com/utafrali/goodssearch/internal/codec"
	"github.com/utafrali/goodssearch/internal/config"
	"github.com/utafrali/goodssearch/internal/engine"
	esengine "github.com/utafrali/goodssearch/internal/engine/elasticsearch"
	"github.com/utafrali/goodssearch/internal/engine/memory"
	"github.com/utafrali/goodssearch/internal/facet"
	"github.com/utafrali/goodssearch/internal/gateway"
	"github.com/utafrali/goodssearch/internal/gateway/cache"
	"github.com/utafrali/goodssearch/internal/gateway/postgres"
	"github.com/utafrali/goodssearch/internal/gateway/remote"
	"github.com/utafrali/goodssearch/internal/service"
	"github.com/utafrali/goodssearch/pkg/database"
	"github.com/utafrali/goodssearch/pkg/health"
	"github.com/utafrali/goodssearch/pkg/httpclient"
)

// ServiceName tags logs, metrics and spans of every goodssearch binary.
const ServiceName = "goodssearch"

const slowQueryThreshold = 200 * time.Millisecond

// Core holds the search facade and the collaborators it was built from.
// Both the server and goodsctl construct one.
type Core struct {
	Service *service.SearchService
	Store   engine.IndexStore
	Catalog gateway.Catalog
	Redis   *redis.Client

	checks  []check
	closers []func() error
	logger  *slog.Logger
}

type check struct {
	name     string
	fn       health.Checker
	critical bool
}

// NewCore builds the index store, the catalog gateway (optionally cached)
// and the search facade described by cfg.
func NewCore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Core, err error) {
	c := &Core{logger: logger}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	if err := c.initStore(cfg); err != nil {
		return nil, err
	}
	if err := c.initCatalog(ctx, cfg); err != nil {
		return nil, err
	}
	if cfg.CacheEnabled {
		if err := c.initCache(ctx, cfg); err != nil {
			return nil, err
		}
	}

	c.Service = service.NewSearchService(
		builder.New(c.Catalog, codec.NewJSON()),
		c.Store,
		facet.New(c.Store, c.Catalog),
		cfg.SearchOptions(),
		logger,
	)
	return c, nil
}

func (c *Core) initStore(cfg *config.Config) error {
	switch cfg.SearchEngine {
	case config.EngineElasticsearch:
		es, err := esengine.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex, c.logger)
		if err != nil {
			return fmt.Errorf("init elasticsearch engine: %w", err)
		}
		c.Store = es
		c.checks = append(c.checks, check{name: "elasticsearch", fn: es.Ping, critical: true})
		c.logger.Info("elasticsearch index store initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
	default:
		c.Store = memory.New()
		c.logger.Info("in-memory index store initialized")
	}
	return nil
}

func (c *Core) initCatalog(ctx context.Context, cfg *config.Config) error {
	switch cfg.GatewayMode {
	case config.GatewayPostgres:
		pool, err := database.NewPostgresPool(ctx, &cfg.Postgres, c.logger)
		if err != nil {
			return fmt.Errorf("init postgres gateway: %w", err)
		}
		c.closers = append(c.closers, func() error { pool.Close(); return nil })

		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return fmt.Errorf("register pool metrics: %w", err)
			}
		}
		database.SetSlowQueryLogging(slowQueryThreshold, c.logger)

		c.Catalog = postgres.NewCatalog(pool)
		c.checks = append(c.checks, check{name: "postgres", fn: pool.Ping, critical: true})
		c.logger.Info("postgres catalog gateway initialized",
			slog.String("host", cfg.Postgres.Host),
			slog.String("database", cfg.Postgres.DBName),
		)
	default:
		hc := httpclient.DefaultConfig()
		hc.Timeout = cfg.ItemServiceTimeout
		hc.MaxRetries = cfg.ItemServiceMaxRetries
		breaker := httpclient.NewCircuitBreakerClient(
			httpclient.New(hc),
			httpclient.DefaultCircuitBreakerConfig(remote.ServiceName),
			c.logger,
		)
		c.Catalog = remote.NewCatalog(cfg.ItemServiceURL, breaker, codec.NewJSON())
		c.logger.Info("remote catalog gateway initialized", slog.String("url", cfg.ItemServiceURL))
	}
	return nil
}

func (c *Core) initCache(ctx context.Context, cfg *config.Config) error {
	client, err := database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("init lookup cache: %w", err)
	}
	c.Redis = client
	c.closers = append(c.closers, client.Close)

	c.Catalog = cache.New(c.Catalog, client, cfg.CacheTTL, codec.NewJSON(), c.logger)
	c.checks = append(c.checks, check{name: "redis", fn: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}})
	c.logger.Info("redis lookup cache enabled",
		slog.String("addr", cfg.Redis.Addr()),
		slog.Duration("ttl", cfg.CacheTTL),
	)
	return nil
}

// RegisterChecks adds the readiness checks of the core collaborators.
func (c *Core) RegisterChecks(h *health.Handler) {
	for _, ch := range c.checks {
		if ch.critical {
			h.Register(ch.name, ch.fn)
		} else {
			h.RegisterOptional(ch.name, ch.fn)
		}
	}
}

// Close releases connections in reverse order of creation.
func (c *Core) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
