package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/goodssearch/internal/config"
	"github.com/utafrali/goodssearch/internal/engine/memory"
	"github.com/utafrali/goodssearch/internal/gateway/cache"
	"github.com/utafrali/goodssearch/internal/gateway/remote"
	"github.com/utafrali/goodssearch/pkg/database"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// itemService answers every lookup with 404.
func itemService(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"spu not found"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(itemURL string) *config.Config {
	return &config.Config{
		Environment:           "test",
		LogLevel:              "error",
		HTTPPort:              0,
		RequestTimeout:        5 * time.Second,
		ShutdownTimeout:       5 * time.Second,
		SearchEngine:          config.EngineMemory,
		DefaultPageSize:       20,
		MaxPageSize:           100,
		GatewayMode:           config.GatewayRemote,
		ItemServiceURL:        itemURL,
		ItemServiceTimeout:    2 * time.Second,
		ItemServiceMaxRetries: 0,
		CacheTTL:              time.Minute,
		IdempotencyTTL:        time.Hour,
		KafkaBrokers:          []string{"127.0.0.1:1"},
		KafkaGroupID:          "goodssearch-test",
		OTELSampleRate:        1,
	}
}

func TestNewCore_MemoryAndRemote(t *testing.T) {
	cfg := testConfig(itemService(t).URL)

	core, err := NewCore(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = core.Close() })

	assert.IsType(t, &memory.Engine{}, core.Store)
	assert.IsType(t, &remote.Catalog{}, core.Catalog)
	assert.Nil(t, core.Redis)
	assert.Empty(t, core.checks)

	err = core.Service.Index(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestNewCore_WithCache(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := testConfig(itemService(t).URL)
	cfg.CacheEnabled = true
	cfg.Redis = database.RedisConfig{Host: mr.Host(), Port: port, PoolSize: 2}

	core, err := NewCore(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	assert.IsType(t, &cache.Catalog{}, core.Catalog)
	require.NotNil(t, core.Redis)
	require.Len(t, core.checks, 1)
	assert.Equal(t, "redis", core.checks[0].name)
	assert.False(t, core.checks[0].critical)
	assert.NoError(t, core.checks[0].fn(context.Background()))

	require.NoError(t, core.Close())
	assert.Error(t, core.Redis.Ping(context.Background()).Err())
}

func TestNewCore_CacheUnreachable(t *testing.T) {
	cfg := testConfig(itemService(t).URL)
	cfg.CacheEnabled = true
	cfg.Redis = database.RedisConfig{Host: "127.0.0.1", Port: 1}

	_, err := NewCore(context.Background(), cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init lookup cache")
}

func TestNewApp_Routes(t *testing.T) {
	cfg := testConfig(itemService(t).URL)

	a, err := NewApp(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })
	assert.Empty(t, a.consumers)
	assert.Nil(t, a.dlq)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/api/v1/search/goods/1", nil)
	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewApp_KafkaConsumers(t *testing.T) {
	cfg := testConfig(itemService(t).URL)
	cfg.KafkaEnabled = true
	cfg.KafkaDLQ = true

	a, err := NewApp(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	require.Len(t, a.consumers, 3)
	topics := make([]string, 0, len(a.consumers))
	for _, c := range a.consumers {
		topics = append(topics, c.Topic())
	}
	assert.ElementsMatch(t, []string{"ecommerce.item.insert", "ecommerce.item.update", "ecommerce.item.delete"}, topics)
	assert.NotNil(t, a.dlq)

	// The broker is unreachable, so readiness is degraded but not failing.
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)

	assert.NoError(t, a.Shutdown())
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig(itemService(t).URL)

	a, err := NewApp(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
