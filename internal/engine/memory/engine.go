package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/utafrali/goodssearch/internal/domain"
	"github.com/utafrali/goodssearch/internal/engine"
)

// defaultAggSize mirrors the Elasticsearch default terms aggregation size.
const defaultAggSize = 10

// Engine is an in-memory implementation of the IndexStore interface.
// Full-text matching is whitespace tokenization with case folding.
// Thread-safe via sync.RWMutex.
type Engine struct {
	mu    sync.RWMutex
	goods map[int64]domain.Goods
}

// New creates a new in-memory index store.
func New() *Engine {
	return &Engine{
		goods: make(map[int64]domain.Goods),
	}
}

// Upsert adds or replaces a document in the in-memory index.
func (e *Engine) Upsert(_ context.Context, goods *domain.Goods) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.goods[goods.ID] = *goods
	return nil
}

// Delete removes a document from the in-memory index by its ID.
func (e *Engine) Delete(_ context.Context, id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.goods, id)
	return nil
}

// Get returns the stored document with the given id.
func (e *Engine) Get(id int64) (domain.Goods, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	g, ok := e.goods[id]
	return g, ok
}

// Len returns the number of stored documents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.goods)
}

// Query executes a boolean query against the in-memory index.
func (e *Engine) Query(_ context.Context, q *engine.Query) (*engine.Result, error) {
	e.mu.RLock()
	matched := make([]domain.Goods, 0)
	for _, g := range e.goods {
		if matches(g, q.Bool) {
			matched = append(matched, g)
		}
	}
	e.mu.RUnlock()

	// Relevance is not modeled; keep hit order stable.
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ID < matched[j].ID
	})

	aggs := make(map[string][]engine.Bucket, len(q.Aggs))
	for _, agg := range q.Aggs {
		aggs[agg.Name] = aggregate(matched, agg)
	}

	total := len(matched)
	offset := q.From
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + q.Size
	if q.Size < 0 || end > total {
		end = total
	}

	hits := make([]domain.Goods, 0, end-offset)
	for _, g := range matched[offset:end] {
		hits = append(hits, project(g, q.Source))
	}

	return &engine.Result{
		Total:        int64(total),
		Hits:         hits,
		Aggregations: aggs,
	}, nil
}

// matches checks whether a document satisfies every clause of the query.
func matches(g domain.Goods, q engine.BoolQuery) bool {
	for _, m := range q.Must {
		if !matchText(fieldValues(g, m.Field), m) {
			return false
		}
	}

	for _, f := range q.Filter {
		if !contains(fieldValues(g, f.Field), f.Value) {
			return false
		}
	}

	return true
}

func matchText(values []string, m engine.Match) bool {
	docTokens := make(map[string]struct{})
	for _, v := range values {
		for _, tok := range strings.Fields(strings.ToLower(v)) {
			docTokens[tok] = struct{}{}
		}
	}

	queryTokens := strings.Fields(strings.ToLower(m.Query))
	if len(queryTokens) == 0 {
		return false
	}

	hit := 0
	for _, tok := range queryTokens {
		if _, ok := docTokens[tok]; ok {
			hit++
		}
	}

	if m.Operator == engine.OperatorOr {
		return hit > 0
	}
	return hit == len(queryTokens)
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

// fieldValues returns the indexed values of a document field.
func fieldValues(g domain.Goods, field string) []string {
	switch field {
	case engine.FieldID:
		return []string{strconv.FormatInt(g.ID, 10)}
	case engine.FieldAll:
		return []string{g.All}
	case engine.FieldSubTitle:
		return []string{g.SubTitle}
	case engine.FieldCid3:
		return []string{strconv.FormatInt(g.Cid3, 10)}
	case engine.FieldBrandID:
		return []string{strconv.FormatInt(g.BrandID, 10)}
	}

	if name, ok := specName(field); ok {
		if v, found := g.Specs[name]; found {
			return v.Values()
		}
	}
	return nil
}

func specName(field string) (string, bool) {
	if !strings.HasPrefix(field, engine.FieldSpecPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(field, engine.FieldSpecPrefix)
	return strings.TrimSuffix(name, ".keyword"), true
}

// aggregate counts distinct field values ordered by document count, then key.
func aggregate(docs []domain.Goods, agg engine.TermsAgg) []engine.Bucket {
	counts := make(map[string]int64)
	for _, g := range docs {
		seen := make(map[string]struct{})
		for _, v := range fieldValues(g, agg.Field) {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			counts[v]++
		}
	}

	buckets := make([]engine.Bucket, 0, len(counts))
	for k, n := range counts {
		buckets = append(buckets, engine.Bucket{Key: k, DocCount: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].DocCount != buckets[j].DocCount {
			return buckets[i].DocCount > buckets[j].DocCount
		}
		return buckets[i].Key < buckets[j].Key
	})

	size := agg.Size
	if size <= 0 {
		size = defaultAggSize
	}
	if len(buckets) > size {
		buckets = buckets[:size]
	}
	return buckets
}

// project keeps only the fields allowed by the source filter.
func project(g domain.Goods, src *engine.SourceFilter) domain.Goods {
	if src == nil {
		return g
	}
	if src.ExcludeAll {
		return domain.Goods{}
	}
	if len(src.Includes) == 0 {
		return g
	}

	var out domain.Goods
	for _, field := range src.Includes {
		switch field {
		case engine.FieldID:
			out.ID = g.ID
		case engine.FieldAll:
			out.All = g.All
		case engine.FieldSubTitle:
			out.SubTitle = g.SubTitle
		case engine.FieldCid3:
			out.Cid3 = g.Cid3
		case engine.FieldBrandID:
			out.BrandID = g.BrandID
		case engine.FieldSkus:
			out.Skus = g.Skus
		}
	}
	return out
}
