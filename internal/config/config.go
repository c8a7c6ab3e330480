// Package config loads goodssearch configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/utafrali/goodssearch/internal/service"
	pkgconfig "github.com/utafrali/goodssearch/pkg/config"
	"github.com/utafrali/goodssearch/pkg/database"
	"github.com/utafrali/goodssearch/pkg/logger"
)

// Index store backends.
const (
	EngineElasticsearch = "elasticsearch"
	EngineMemory        = "memory"
)

// Gateway modes.
const (
	GatewayRemote   = "remote"
	GatewayPostgres = "postgres"
)

// DotenvFile is read before the environment when present.
const DotenvFile = ".env"

// Config holds all configuration for the search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"SEARCH_HTTP_PORT" envDefault:"8010"`
	RequestTimeout  time.Duration `env:"SEARCH_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Index store
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"goods"`
	SearchEngine       string `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`

	// Search request defaults
	DefaultPageSize int `env:"SEARCH_DEFAULT_PAGE_SIZE" envDefault:"20"`
	MaxPageSize     int `env:"SEARCH_MAX_PAGE_SIZE" envDefault:"100"`

	// Catalog gateway
	GatewayMode           string        `env:"GATEWAY_MODE" envDefault:"remote"`
	ItemServiceURL        string        `env:"ITEM_SERVICE_URL" envDefault:"http://localhost:8081"`
	ItemServiceTimeout    time.Duration `env:"ITEM_SERVICE_TIMEOUT" envDefault:"10s"`
	ItemServiceMaxRetries int           `env:"ITEM_SERVICE_MAX_RETRIES" envDefault:"2"`

	Postgres database.PostgresConfig `envPrefix:"POSTGRES_"`

	// Lookup cache
	CacheEnabled bool                 `env:"CACHE_ENABLED" envDefault:"false"`
	CacheTTL     time.Duration        `env:"CACHE_TTL" envDefault:"10m"`
	Redis        database.RedisConfig `envPrefix:"REDIS_"`

	// Change notifications
	KafkaEnabled   bool          `env:"KAFKA_ENABLED" envDefault:"true"`
	KafkaBrokers   []string      `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID   string        `env:"KAFKA_GROUP_ID" envDefault:"goodssearch"`
	KafkaDLQ       bool          `env:"KAFKA_DLQ_ENABLED" envDefault:"true"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from .env (if present) and environment variables.
func Load() (*Config, error) {
	return LoadFrom(DotenvFile)
}

// LoadFrom is Load with explicit dotenv files.
func LoadFrom(dotenvFiles ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, dotenvFiles...); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SearchOptions returns the facade paging defaults.
func (c *Config) SearchOptions() service.Options {
	return service.Options{DefaultPageSize: c.DefaultPageSize, MaxPageSize: c.MaxPageSize}
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	var errs []error

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	switch c.SearchEngine {
	case EngineElasticsearch:
		if _, err := url.ParseRequestURI(c.ElasticsearchURL); err != nil {
			errs = append(errs, fmt.Errorf("invalid ELASTICSEARCH_URL: %q", c.ElasticsearchURL))
		}
		if c.ElasticsearchIndex == "" {
			errs = append(errs, errors.New("ELASTICSEARCH_INDEX is required"))
		}
	case EngineMemory:
	default:
		errs = append(errs, fmt.Errorf("SEARCH_ENGINE must be %s or %s, got %q", EngineElasticsearch, EngineMemory, c.SearchEngine))
	}

	switch c.GatewayMode {
	case GatewayRemote:
		if _, err := url.ParseRequestURI(c.ItemServiceURL); err != nil {
			errs = append(errs, fmt.Errorf("invalid ITEM_SERVICE_URL: %q", c.ItemServiceURL))
		}
		if c.ItemServiceMaxRetries < 0 {
			errs = append(errs, fmt.Errorf("ITEM_SERVICE_MAX_RETRIES must not be negative, got %d", c.ItemServiceMaxRetries))
		}
	case GatewayPostgres:
		if c.Postgres.Port < 1 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Errorf("invalid POSTGRES_PORT: %d", c.Postgres.Port))
		}
	default:
		errs = append(errs, fmt.Errorf("GATEWAY_MODE must be %s or %s, got %q", GatewayRemote, GatewayPostgres, c.GatewayMode))
	}

	if c.DefaultPageSize < 1 {
		errs = append(errs, fmt.Errorf("SEARCH_DEFAULT_PAGE_SIZE must be positive, got %d", c.DefaultPageSize))
	}
	if c.MaxPageSize < 1 {
		errs = append(errs, fmt.Errorf("SEARCH_MAX_PAGE_SIZE must be positive, got %d", c.MaxPageSize))
	}
	if c.DefaultPageSize > c.MaxPageSize {
		errs = append(errs, fmt.Errorf("SEARCH_DEFAULT_PAGE_SIZE %d exceeds SEARCH_MAX_PAGE_SIZE %d", c.DefaultPageSize, c.MaxPageSize))
	}

	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be within [0,1], got %v", c.OTELSampleRate))
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED"))
	}

	return errors.Join(errs...)
}
