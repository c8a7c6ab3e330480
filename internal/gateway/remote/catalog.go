// Package remote reads the catalog from the item service over HTTP.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/utafrali/goodssearch/internal/codec"
	"github.com/utafrali/goodssearch/internal/domain"
	"github.com/utafrali/goodssearch/pkg/httpclient"
)

// ServiceName identifies the item service in errors and breaker metrics.
const ServiceName = "item-service"

// Getter issues GET requests. *httpclient.Client and
// *httpclient.CircuitBreakerClient both satisfy it.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// envelope mirrors the httputil.Response success body.
type envelope[T any] struct {
	Data T `json:"data"`
}

// Catalog implements gateway.Catalog against the item service API.
type Catalog struct {
	baseURL string
	client  Getter
	codec   codec.Codec
}

// NewCatalog creates a catalog gateway rooted at baseURL.
func NewCatalog(baseURL string, client Getter, c codec.Codec) *Catalog {
	return &Catalog{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		codec:   c,
	}
}

// CategoryNames calls GET /api/v1/categories/names?ids=1,2,3.
func (c *Catalog) CategoryNames(ctx context.Context, ids []int64) ([]string, error) {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	q := url.Values{"ids": {strings.Join(parts, ",")}}

	names, err := fetch[[]string](ctx, c, "/api/v1/categories/names?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("category names: %w", err)
	}
	if len(names) != len(ids) {
		return nil, fmt.Errorf("category names: got %d names for %d ids", len(names), len(ids))
	}
	return names, nil
}

// Brand calls GET /api/v1/brands/{id}.
func (c *Catalog) Brand(ctx context.Context, id int64) (*domain.Brand, error) {
	b, err := fetch[domain.Brand](ctx, c, fmt.Sprintf("/api/v1/brands/%d", id))
	if err != nil {
		return nil, fmt.Errorf("brand %d: %w", id, err)
	}
	return &b, nil
}

// Spu calls GET /api/v1/spus/{id}.
func (c *Catalog) Spu(ctx context.Context, id int64) (*domain.Spu, error) {
	s, err := fetch[domain.Spu](ctx, c, fmt.Sprintf("/api/v1/spus/%d", id))
	if err != nil {
		return nil, fmt.Errorf("spu %d: %w", id, err)
	}
	return &s, nil
}

// Detail calls GET /api/v1/spus/{id}/detail.
func (c *Catalog) Detail(ctx context.Context, spuID int64) (*domain.SpuDetail, error) {
	d, err := fetch[domain.SpuDetail](ctx, c, fmt.Sprintf("/api/v1/spus/%d/detail", spuID))
	if err != nil {
		return nil, fmt.Errorf("spu detail %d: %w", spuID, err)
	}
	return &d, nil
}

// ListSkus calls GET /api/v1/spus/{id}/skus.
func (c *Catalog) ListSkus(ctx context.Context, spuID int64) ([]domain.Sku, error) {
	skus, err := fetch[[]domain.Sku](ctx, c, fmt.Sprintf("/api/v1/spus/%d/skus", spuID))
	if err != nil {
		return nil, fmt.Errorf("skus of spu %d: %w", spuID, err)
	}
	if skus == nil {
		skus = []domain.Sku{}
	}
	return skus, nil
}

// ListProductIDs calls GET /api/v1/spus/ids?page=&size=&saleable=true.
func (c *Catalog) ListProductIDs(ctx context.Context, page, size int) ([]int64, error) {
	q := url.Values{
		"page":     {strconv.Itoa(page)},
		"size":     {strconv.Itoa(size)},
		"saleable": {"true"},
	}

	ids, err := fetch[[]int64](ctx, c, "/api/v1/spus/ids?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("product ids: %w", err)
	}
	return ids, nil
}

// ListSpecParams calls GET /api/v1/spec-params?cid=&searching=true[&generic=true].
func (c *Catalog) ListSpecParams(ctx context.Context, cid int64, genericOnly bool) ([]domain.SpecParam, error) {
	q := url.Values{
		"cid":       {strconv.FormatInt(cid, 10)},
		"searching": {"true"},
	}
	if genericOnly {
		q.Set("generic", "true")
	}

	params, err := fetch[[]domain.SpecParam](ctx, c, "/api/v1/spec-params?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("spec params of category %d: %w", cid, err)
	}
	return params, nil
}

// fetch GETs path and decodes the data member of the response envelope.
// Non-2xx responses are translated by httpclient.ParseResponseError.
func fetch[T any](ctx context.Context, c *Catalog, path string) (T, error) {
	var zero T

	resp, err := c.client.Get(ctx, c.baseURL+path)
	if err != nil {
		return zero, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, httpclient.ParseResponseError(resp, ServiceName)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("read response: %w", err)
	}

	var env envelope[T]
	if err := c.codec.Unmarshal(body, &env); err != nil {
		return zero, fmt.Errorf("decode response: %w", err)
	}
	return env.Data, nil
}
