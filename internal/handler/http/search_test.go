package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/goodssearch/internal/builder"
	"github.com/utafrali/goodssearch/internal/codec"
	"github.com/utafrali/goodssearch/internal/engine/memory"
	"github.com/utafrali/goodssearch/internal/facet"
	"github.com/utafrali/goodssearch/internal/gateway/gatewaytest"
	"github.com/utafrali/goodssearch/internal/service"
	"github.com/utafrali/goodssearch/pkg/health"
	"github.com/utafrali/goodssearch/pkg/middleware"
)

type response struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code      string            `json:"code"`
		Message   string            `json:"message"`
		Fields    map[string]string `json:"fields"`
		RequestID string            `json:"request_id"`
	} `json:"error"`
}

type fixture struct {
	router  http.Handler
	store   *memory.Engine
	catalog *gatewaytest.Catalog
	health  *health.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	catalog := gatewaytest.NewCatalog()
	gatewaytest.SeedPhoneX(catalog)
	store := memory.New()
	svc := service.NewSearchService(
		builder.New(catalog, codec.NewJSON()),
		store,
		facet.New(store, catalog),
		service.Options{},
		logger,
	)

	h := health.NewHandler()
	cfg := RouterConfig{CORS: middleware.CORSConfig{AllowedOrigins: []string{"https://shop.example"}}}
	return &fixture{
		router:  NewRouter(svc, h, cfg, logger),
		store:   store,
		catalog: catalog,
		health:  h,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestSearch_IndexThenSearch(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodPut, "/api/v1/search/goods/1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"id":1,"status":"indexed"}`, string(resp.Data))
	assert.Equal(t, 1, f.store.Len())

	w, resp = f.do(t, http.MethodPost, "/api/v1/search/page", `{"key":"phone","filter":{"品牌":7}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result struct {
		Total      int64 `json:"total"`
		TotalPages int   `json:"total_page"`
		Items      []struct {
			ID       int64  `json:"id"`
			SubTitle string `json:"sub_title"`
		} `json:"items"`
		Brands []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"brands"`
		Specs []struct {
			Name    string   `json:"k"`
			Options []string `json:"options"`
		} `json:"specs"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, int64(1), result.Total)
	assert.Equal(t, 1, result.TotalPages)
	require.Len(t, result.Items, 1)
	assert.Equal(t, gatewaytest.PhoneXID, result.Items[0].ID)
	assert.Equal(t, "Phone X", result.Items[0].SubTitle)
	require.Len(t, result.Brands, 1)
	assert.Equal(t, "Acme", result.Brands[0].Name)
	require.Len(t, result.Specs, 2)
	assert.Equal(t, "RAM", result.Specs[0].Name)
}

func TestSearch_BlankKey(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{`{"key":""}`, `{"key":"   "}`, `{}`} {
		w, resp := f.do(t, http.MethodPost, "/api/v1/search/page", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		require.NotNil(t, resp.Error, body)
		assert.Equal(t, "INVALID_REQUEST", resp.Error.Code, body)
	}
}

func TestSearch_ListFilterValue(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodPost, "/api/v1/search/page", `{"key":"phone","filter":{"品牌":[7,8]}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
}

func TestSearch_MalformedBody(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodPost, "/api/v1/search/page", `{"key":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
}

func TestSearch_KeyTooLong(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodPost, "/api/v1/search/page", `{"key":"`+strings.Repeat("a", 201)+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "key")
}

func TestSearch_RejectsOversizedBody(t *testing.T) {
	f := newFixture(t)

	body := `{"key":"phone","filter":{"x":"` + strings.Repeat("y", 1<<20) + `"}}`
	w, resp := f.do(t, http.MethodPost, "/api/v1/search/page", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
}

func TestIndexGoods_InvalidID(t *testing.T) {
	f := newFixture(t)

	for _, id := range []string{"abc", "0", "-3"} {
		w, resp := f.do(t, http.MethodPut, "/api/v1/search/goods/"+id, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, id)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
	}
}

func TestIndexGoods_UnknownProduct(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodPut, "/api/v1/search/goods/999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, 0, f.store.Len())
}

func TestIndexGoods_CollaboratorDown(t *testing.T) {
	f := newFixture(t)
	f.catalog.Fail(gatewaytest.MethodListSkus, errors.New("connection refused"))

	w, resp := f.do(t, http.MethodPut, "/api/v1/search/goods/1", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "COLLABORATOR_UNAVAILABLE", resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)
	assert.Equal(t, 0, f.store.Len())
}

func TestRemoveGoods(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodPut, "/api/v1/search/goods/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := f.do(t, http.MethodDelete, "/api/v1/search/goods/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"status":"removed"}`, string(resp.Data))
	assert.Equal(t, 0, f.store.Len())

	// Removing an absent id succeeds.
	w, _ = f.do(t, http.MethodDelete, "/api/v1/search/goods/1", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)
	f.health.RegisterOptional("cache", func(context.Context) error { return errors.New("redis down") })

	w, _ := f.do(t, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)

	f.health.Register("index_store", func(context.Context) error { return errors.New("es down") })
	w, _ = f.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/v1/search/page", `{"key":"phone"}`)

	w, _ := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
	assert.Contains(t, w.Body.String(), `path="/api/v1/search/page"`)
}

func TestCorrelationHeader(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(middleware.CorrelationHeader, "abc-123")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(middleware.CorrelationHeader))
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/search/page", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodGet, "/api/v1/search/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
