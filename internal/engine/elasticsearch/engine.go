package elasticsearch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"

	"github.com/utafrali/goodssearch/internal/domain"
	"github.com/utafrali/goodssearch/internal/engine"
)

// Engine is an Elasticsearch-backed implementation of the IndexStore interface.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

// esSearchResponse is the structure used to decode Elasticsearch search responses.
type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source domain.Goods `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]struct {
		Buckets []struct {
			Key      json.RawMessage `json:"key"`
			DocCount int64           `json:"doc_count"`
		} `json:"buckets"`
	} `json:"aggregations"`
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates a new Elasticsearch engine connected to the given URL.
// It ensures the goods index exists, creating it if necessary.
// If indexName is empty, DefaultIndexName is used.
func New(esURL string, indexName string, logger *slog.Logger) (*Engine, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	e := &Engine{
		client:    client,
		indexName: indexName,
		logger:    logger,
	}

	if err := e.ensureIndex(); err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to ensure index: %w", err)
	}

	return e, nil
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// ensureIndex checks whether the goods index exists and creates it if not.
func (e *Engine) ensureIndex() error {
	res, err := e.client.Indices.Exists([]string{e.indexName})
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == 200 {
		e.logger.Info("elasticsearch index already exists", "index", e.indexName)
		return nil
	}

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index", res)
	}

	e.logger.Info("elasticsearch index created", "index", e.indexName)
	return nil
}

// Upsert indexes the document under its product id, replacing any previous version.
func (e *Engine) Upsert(ctx context.Context, goods *domain.Goods) error {
	data, err := json.Marshal(goods)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: marshal goods: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(strconv.FormatInt(goods.ID, 10)),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch upsert", res)
	}

	e.logger.Debug("indexed goods", "id", goods.ID)
	return nil
}

// Delete removes a document by its ID. A missing document (404) is not an error.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	res, err := e.client.Delete(
		e.indexName,
		strconv.FormatInt(id, 10),
		e.client.Delete.WithRefresh("true"),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != 404 {
		return responseError("elasticsearch delete", res)
	}

	e.logger.Debug("deleted goods", "id", id)
	return nil
}

// Query executes a boolean query with aggregations against Elasticsearch.
func (e *Engine) Query(ctx context.Context, q *engine.Query) (*engine.Result, error) {
	data, err := json.Marshal(buildSearchBody(q))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch query: marshal body: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
		e.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch query: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("elasticsearch query", res)
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch query: decode response: %w", err)
	}

	return convertResponse(&esResp)
}

// DeleteIndex removes the entire index. It is intended for tests and
// administrative operations only.
func (e *Engine) DeleteIndex(ctx context.Context) error {
	res, err := e.client.Indices.Delete(
		[]string{e.indexName},
		e.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != 404 {
		return responseError("elasticsearch delete index", res)
	}

	e.logger.Info("elasticsearch index deleted", "index", e.indexName)
	return nil
}

// buildSearchBody renders the typed query as Elasticsearch query DSL.
func buildSearchBody(q *engine.Query) map[string]any {
	must := make([]any, 0, len(q.Bool.Must))
	for _, m := range q.Bool.Must {
		op := m.Operator
		if op == "" {
			op = engine.OperatorOr
		}
		must = append(must, map[string]any{
			"match": map[string]any{
				m.Field: map[string]any{
					"query":    m.Query,
					"operator": string(op),
				},
			},
		})
	}

	boolQuery := map[string]any{"must": must}
	if len(q.Bool.Filter) > 0 {
		filters := make([]any, 0, len(q.Bool.Filter))
		for _, f := range q.Bool.Filter {
			filters = append(filters, map[string]any{
				"term": map[string]any{f.Field: f.Value},
			})
		}
		boolQuery["filter"] = filters
	}

	body := map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"from":  q.From,
		"size":  q.Size,
	}

	if q.Source != nil {
		switch {
		case q.Source.ExcludeAll:
			body["_source"] = false
		case len(q.Source.Includes) > 0:
			body["_source"] = q.Source.Includes
		}
	}

	if len(q.Aggs) > 0 {
		aggs := make(map[string]any, len(q.Aggs))
		for _, a := range q.Aggs {
			terms := map[string]any{"field": a.Field}
			if a.Size > 0 {
				terms["size"] = a.Size
			}
			aggs[a.Name] = map[string]any{"terms": terms}
		}
		body["aggs"] = aggs
	}

	return body
}

// convertResponse maps a decoded search response to the engine result.
func convertResponse(esResp *esSearchResponse) (*engine.Result, error) {
	hits := make([]domain.Goods, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		hits = append(hits, hit.Source)
	}

	aggs := make(map[string][]engine.Bucket, len(esResp.Aggregations))
	for name, agg := range esResp.Aggregations {
		buckets := make([]engine.Bucket, 0, len(agg.Buckets))
		for _, b := range agg.Buckets {
			key, err := bucketKey(b.Key)
			if err != nil {
				return nil, fmt.Errorf("elasticsearch query: aggregation %s: %w", name, err)
			}
			buckets = append(buckets, engine.Bucket{Key: key, DocCount: b.DocCount})
		}
		aggs[name] = buckets
	}

	return &engine.Result{
		Total:        esResp.Hits.Total.Value,
		Hits:         hits,
		Aggregations: aggs,
	}, nil
}

// bucketKey returns the textual form of a string or numeric bucket key.
func bucketKey(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", fmt.Errorf("empty bucket key")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decode bucket key: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("decode bucket key: %w", err)
	}
	return n.String(), nil
}

// responseError decodes an Elasticsearch error body into a Go error.
func responseError(op string, res *esapi.Response) error {
	var errResp esErrorResponse
	if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil && errResp.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, res.Status())
}
