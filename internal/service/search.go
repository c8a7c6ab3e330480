// Package service is the search facade: it indexes products, removes them
// and answers faceted searches.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/goodssearch/internal/domain"
	"github.com/utafrali/goodssearch/internal/engine"
	"github.com/utafrali/goodssearch/internal/query"
	apperrors "github.com/utafrali/goodssearch/pkg/errors"
)

// Default paging limits.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// DocumentBuilder assembles the search document of a product.
type DocumentBuilder interface {
	Build(ctx context.Context, id int64) (*domain.Goods, error)
}

// FacetAggregator executes a faceted search.
type FacetAggregator interface {
	Aggregate(ctx context.Context, q engine.BoolQuery, page, size int) (*domain.SearchResult, error)
}

// Options tunes request defaults.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// SearchService implements the index, remove and search operations. All of
// them are idempotent.
type SearchService struct {
	builder    DocumentBuilder
	store      engine.IndexStore
	aggregator FacetAggregator
	opts       Options
	logger     *slog.Logger
}

// NewSearchService creates a new search service. Non-positive page sizes in
// opts fall back to DefaultPageSize and MaxPageSize.
func NewSearchService(builder DocumentBuilder, store engine.IndexStore, aggregator FacetAggregator, opts Options, logger *slog.Logger) *SearchService {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = DefaultPageSize
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = MaxPageSize
	}
	if opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = opts.MaxPageSize
	}
	return &SearchService{
		builder:    builder,
		store:      store,
		aggregator: aggregator,
		opts:       opts,
		logger:     logger,
	}
}

// Index builds the document of product id and upserts it, replacing any
// previous version. A failed build stores nothing.
func (s *SearchService) Index(ctx context.Context, id int64) error {
	goods, err := s.builder.Build(ctx, id)
	if err != nil {
		documentFailures.WithLabelValues("index").Inc()
		return fmt.Errorf("index goods %d: %w", id, err)
	}

	if err := s.store.Upsert(ctx, goods); err != nil {
		documentFailures.WithLabelValues("index").Inc()
		return fmt.Errorf("index goods %d: %w", id, apperrors.Unavailable("index store", err))
	}

	documentsIndexed.Inc()
	s.logger.InfoContext(ctx, "goods indexed",
		slog.Int64("spu_id", id),
		slog.Int("specs", len(goods.Specs)),
		slog.Int("skus", len(goods.Price)),
	)
	return nil
}

// Remove deletes the document of product id. Removing an absent id succeeds.
func (s *SearchService) Remove(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		documentFailures.WithLabelValues("remove").Inc()
		return fmt.Errorf("remove goods %d: %w", id, apperrors.Unavailable("index store", err))
	}

	documentsRemoved.Inc()
	s.logger.InfoContext(ctx, "goods removed from index", slog.Int64("spu_id", id))
	return nil
}

// Search answers a faceted search. A blank key is refused with an
// InvalidRequest error and no result; the store is not queried.
func (s *SearchService) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	if req == nil {
		searchRequests.WithLabelValues(outcomeInvalid).Inc()
		return nil, apperrors.InvalidRequest("search request is required")
	}

	q, err := query.Build(req.Key, req.Filter)
	if err != nil {
		searchRequests.WithLabelValues(outcomeInvalid).Inc()
		return nil, err
	}

	page, size := s.paging(req.Page, req.Size)

	result, err := s.aggregator.Aggregate(ctx, q, page, size)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidRequest) {
			searchRequests.WithLabelValues(outcomeInvalid).Inc()
		} else {
			searchRequests.WithLabelValues(outcomeError).Inc()
		}
		return nil, fmt.Errorf("search: %w", err)
	}

	searchRequests.WithLabelValues(outcomeOK).Inc()
	s.logger.DebugContext(ctx, "search executed",
		slog.String("key", req.Key),
		slog.Int("filters", len(req.Filter)),
		slog.Int("page", page),
		slog.Int64("total", result.Total),
		slog.Bool("spec_facets", result.Specs != nil),
	)
	return result, nil
}

// paging applies the request defaults: page is at least 1 and size is
// within [1, MaxPageSize].
func (s *SearchService) paging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = s.opts.DefaultPageSize
	}
	if size > s.opts.MaxPageSize {
		size = s.opts.MaxPageSize
	}
	return page, size
}
