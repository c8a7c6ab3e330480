// Package facet runs a search against the index store and turns the hits
// and aggregation buckets into a faceted result.
package facet

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/goodssearch/internal/domain"
	"github.com/utafrali/goodssearch/internal/engine"
	"github.com/utafrali/goodssearch/internal/gateway"
	apperrors "github.com/utafrali/goodssearch/pkg/errors"
	"github.com/utafrali/goodssearch/pkg/tracing"
)

// Aggregation names of the primary pass.
const (
	AggCategories = "categories"
	AggBrands     = "brands"
)

const indexStore = "index store"

// hitFields are the only document fields returned for hits.
var hitFields = []string{engine.FieldID, engine.FieldSubTitle, engine.FieldSkus}

// Resolver is the subset of the catalog the aggregator resolves buckets with.
type Resolver interface {
	gateway.CategoryGateway
	gateway.BrandGateway
	gateway.SpecGateway
}

// Aggregator executes the two-stage faceted search pipeline.
type Aggregator struct {
	store    engine.IndexStore
	resolver Resolver
	tracer   trace.Tracer
}

// New creates a facet aggregator.
func New(store engine.IndexStore, resolver Resolver) *Aggregator {
	return &Aggregator{
		store:    store,
		resolver: resolver,
		tracer:   tracing.Tracer("goodssearch/facet"),
	}
}

// Aggregate runs q for the 1-based page of the given size. The primary pass
// returns hits plus category and brand buckets. The spec facet pass runs
// only when the hits share exactly one leaf category; otherwise Specs is nil.
func (a *Aggregator) Aggregate(ctx context.Context, q engine.BoolQuery, page, size int) (_ *domain.SearchResult, err error) {
	if page < 1 || size < 1 {
		return nil, apperrors.InvalidRequest(fmt.Sprintf("invalid page %d or size %d", page, size))
	}

	ctx, span := a.tracer.Start(ctx, "facet.Aggregate", trace.WithAttributes(
		attribute.Int("search.page", page),
		attribute.Int("search.size", size),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	res, err := a.store.Query(ctx, &engine.Query{
		Bool:   q,
		From:   (page - 1) * size,
		Size:   size,
		Source: &engine.SourceFilter{Includes: hitFields},
		Aggs: []engine.TermsAgg{
			{Name: AggCategories, Field: engine.FieldCid3},
			{Name: AggBrands, Field: engine.FieldBrandID},
		},
	})
	if err != nil {
		return nil, apperrors.Unavailable(indexStore, err)
	}

	categoryIDs, err := bucketIDs(res.Aggregations[AggCategories])
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("decode %s buckets: %w", AggCategories, err))
	}
	brandIDs, err := bucketIDs(res.Aggregations[AggBrands])
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("decode %s buckets: %w", AggBrands, err))
	}

	categories, err := a.categoryFacets(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}
	brands, err := a.brandFacets(ctx, brandIDs)
	if err != nil {
		return nil, err
	}

	result := &domain.SearchResult{
		Total:      res.Total,
		TotalPages: totalPages(res.Total, size),
		Items:      res.Hits,
		Categories: categories,
		Brands:     brands,
	}
	if result.Items == nil {
		result.Items = []domain.Goods{}
	}

	resolution := ResolveCategory(categoryIDs)
	span.SetAttributes(attribute.String("facet.category_resolution", resolution.Kind.String()))
	if !resolution.WantsSpecFacets() {
		return result, nil
	}

	result.Specs, err = a.specFacets(ctx, q, resolution.CategoryID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// categoryFacets resolves the category buckets in one batched lookup.
func (a *Aggregator) categoryFacets(ctx context.Context, ids []int64) ([]domain.CategoryFacet, error) {
	facets := make([]domain.CategoryFacet, 0, len(ids))
	if len(ids) == 0 {
		return facets, nil
	}

	names, err := a.resolver.CategoryNames(ctx, ids)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, danglingBucket("category", err)
	}
	if err != nil {
		return nil, apperrors.Unavailable("category gateway", err)
	}
	if len(names) != len(ids) {
		return nil, apperrors.Unavailable("category gateway",
			fmt.Errorf("got %d names for %d categories", len(names), len(ids)))
	}

	for i, id := range ids {
		facets = append(facets, domain.CategoryFacet{ID: id, Name: names[i]})
	}
	return facets, nil
}

// brandFacets resolves each brand bucket with its own lookup.
func (a *Aggregator) brandFacets(ctx context.Context, ids []int64) ([]domain.Brand, error) {
	brands := make([]domain.Brand, 0, len(ids))
	for _, id := range ids {
		b, err := a.resolver.Brand(ctx, id)
		if err == nil && b == nil {
			err = apperrors.NotFound("brand", id)
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, danglingBucket("brand", err)
		}
		if err != nil {
			return nil, apperrors.Unavailable("brand gateway", err)
		}
		brands = append(brands, *b)
	}
	return brands, nil
}

// danglingBucket reports an indexed id the catalog no longer knows.
func danglingBucket(kind string, err error) error {
	return apperrors.Internal(fmt.Errorf("%s bucket has no catalog entry: %w", kind, err))
}

// specFacets is the second pass: no hits, one terms aggregation per spec
// param of the category, in declaration order.
func (a *Aggregator) specFacets(ctx context.Context, q engine.BoolQuery, cid int64) ([]domain.SpecFacet, error) {
	params, err := a.resolver.ListSpecParams(ctx, cid, false)
	if err != nil {
		return nil, apperrors.Unavailable("spec gateway", err)
	}

	facets := make([]domain.SpecFacet, 0, len(params))
	if len(params) == 0 {
		return facets, nil
	}

	names := make([]string, 0, len(params))
	aggs := make([]engine.TermsAgg, 0, len(params))
	seen := make(map[string]struct{}, len(params))
	for _, p := range params {
		if _, dup := seen[p.Name]; dup {
			continue
		}
		seen[p.Name] = struct{}{}
		names = append(names, p.Name)
		aggs = append(aggs, engine.TermsAgg{Name: p.Name, Field: engine.SpecField(p.Name)})
	}

	res, err := a.store.Query(ctx, &engine.Query{
		Bool:   q,
		Size:   0,
		Source: &engine.SourceFilter{ExcludeAll: true},
		Aggs:   aggs,
	})
	if err != nil {
		return nil, apperrors.Unavailable(indexStore, err)
	}

	for _, name := range names {
		buckets := res.Aggregations[name]
		options := make([]string, 0, len(buckets))
		for _, b := range buckets {
			options = append(options, b.Key)
		}
		facets = append(facets, domain.SpecFacet{Name: name, Options: options})
	}
	return facets, nil
}

// bucketIDs decodes the keys of a long-typed aggregation.
func bucketIDs(buckets []engine.Bucket) ([]int64, error) {
	ids := make([]int64, 0, len(buckets))
	for _, b := range buckets {
		id, err := b.Int64()
		if err != nil {
			return nil, fmt.Errorf("bucket key %q: %w", b.Key, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func totalPages(total int64, size int) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
