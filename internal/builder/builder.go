// Package builder assembles the denormalized search document of a product
// from the catalog gateways.
package builder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/utafrali/goodssearch/internal/codec"
	"github.com/utafrali/goodssearch/internal/domain"
	"github.com/utafrali/goodssearch/internal/gateway"
	"github.com/utafrali/goodssearch/internal/segment"
	apperrors "github.com/utafrali/goodssearch/pkg/errors"
	"github.com/utafrali/goodssearch/pkg/tracing"
)

// Collaborator names used in CollaboratorUnavailable errors.
const (
	sourceProduct  = "product gateway"
	sourceCategory = "category gateway"
	sourceBrand    = "brand gateway"
	sourceSpec     = "spec gateway"
)

// ErrProductGone marks a build that failed because the product itself no
// longer exists. It always comes with apperrors.ErrNotFound. A NotFound
// without it means the product exists but references something missing.
var ErrProductGone = errors.New("product no longer exists")

// Builder turns a product id into a Goods document. It holds no state
// between calls and is safe for concurrent use.
type Builder struct {
	catalog gateway.Catalog
	codec   codec.Codec
	tracer  trace.Tracer
}

// New creates a document builder.
func New(catalog gateway.Catalog, c codec.Codec) *Builder {
	return &Builder{
		catalog: catalog,
		codec:   c,
		tracer:  tracing.Tracer("goodssearch/builder"),
	}
}

// sources holds the collaborator reads a build depends on.
type sources struct {
	names  []string
	brand  *domain.Brand
	skus   []domain.Sku
	params []domain.SpecParam
	detail *domain.SpuDetail
}

// Build reads the product and everything it references, then assembles the
// document. It fails with NotFound when the product, its detail or its brand
// is missing, and with MalformedAttributeBlob when a spec blob is not a JSON
// object. No partial document is ever returned.
func (b *Builder) Build(ctx context.Context, id int64) (_ *domain.Goods, err error) {
	ctx, span := b.tracer.Start(ctx, "builder.Build", trace.WithAttributes(attribute.Int64("spu.id", id)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	spu, err := b.catalog.Spu(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) || (err == nil && spu == nil) {
		return nil, productGone(id)
	}
	if err != nil {
		return nil, apperrors.Unavailable(sourceProduct, err)
	}

	src, err := b.fetch(ctx, spu)
	if err != nil {
		return nil, err
	}

	specs, err := b.resolveSpecs(spu.ID, src.detail, src.params)
	if err != nil {
		return nil, err
	}

	prices := make([]int64, 0, len(src.skus))
	briefs := make([]domain.SkuBrief, 0, len(src.skus))
	for _, sku := range src.skus {
		prices = append(prices, sku.Price)
		briefs = append(briefs, domain.SkuBrief{
			ID:    sku.ID,
			Title: sku.Title,
			Price: sku.Price,
			Image: firstImage(sku.Images),
		})
	}

	skus, err := b.codec.Marshal(briefs)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("encode skus of spu %d: %w", spu.ID, err))
	}

	words := make([]string, 0, len(src.names)+2)
	words = append(words, spu.Title)
	words = append(words, src.names...)
	words = append(words, src.brand.Name)

	goods := &domain.Goods{
		ID:       spu.ID,
		All:      strings.Join(words, " "),
		SubTitle: spu.SubTitle,
		Cid1:     spu.Cid1,
		Cid2:     spu.Cid2,
		Cid3:     spu.Cid3,
		BrandID:  spu.BrandID,
		Price:    prices,
		Skus:     string(skus),
		Specs:    specs,
	}
	if goods.SubTitle == "" {
		goods.SubTitle = spu.Title
	}
	if !spu.CreateTime.IsZero() {
		created := spu.CreateTime
		goods.CreateTime = &created
	}
	return goods, nil
}

func productGone(id int64) error {
	e := apperrors.NotFound("spu", id)
	e.Err = errors.Join(apperrors.ErrNotFound, ErrProductGone)
	return e
}

// fetch issues the independent reads concurrently. The first failure cancels
// the others.
func (b *Builder) fetch(ctx context.Context, spu *domain.Spu) (*sources, error) {
	var src sources
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		names, err := b.catalog.CategoryNames(gctx, spu.CategoryIDs())
		if err != nil {
			return apperrors.Unavailable(sourceCategory, err)
		}
		src.names = names
		return nil
	})
	g.Go(func() error {
		brand, err := b.catalog.Brand(gctx, spu.BrandID)
		if err != nil {
			return apperrors.Unavailable(sourceBrand, err)
		}
		if brand == nil {
			return apperrors.NotFound("brand", spu.BrandID)
		}
		src.brand = brand
		return nil
	})
	g.Go(func() error {
		skus, err := b.catalog.ListSkus(gctx, spu.ID)
		if err != nil {
			return apperrors.Unavailable(sourceProduct, err)
		}
		src.skus = skus
		return nil
	})
	g.Go(func() error {
		params, err := b.catalog.ListSpecParams(gctx, spu.Cid3, false)
		if err != nil {
			return apperrors.Unavailable(sourceSpec, err)
		}
		src.params = params
		return nil
	})
	g.Go(func() error {
		detail, err := b.catalog.Detail(gctx, spu.ID)
		if err != nil {
			return apperrors.Unavailable(sourceProduct, err)
		}
		if detail == nil {
			return apperrors.NotFound("spu detail", spu.ID)
		}
		src.detail = detail
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &src, nil
}

// resolveSpecs maps every spec param with a value in the detail blobs to its
// display name. Params without a value are omitted.
func (b *Builder) resolveSpecs(spuID int64, detail *domain.SpuDetail, params []domain.SpecParam) (map[string]domain.SpecValue, error) {
	generic, err := b.decodeBlob(detail.GenericSpec)
	if err != nil {
		return nil, apperrors.MalformedBlob("generic_spec", spuID, err)
	}
	special, err := b.decodeBlob(detail.SpecialSpec)
	if err != nil {
		return nil, apperrors.MalformedBlob("special_spec", spuID, err)
	}

	specs := make(map[string]domain.SpecValue, len(params))
	for _, p := range params {
		key := strconv.FormatInt(p.ID, 10)

		if p.Generic {
			raw, ok := generic[key]
			if !ok || raw == nil {
				continue
			}
			value := text(raw)
			if p.Numeric {
				value = segment.Classify(value, p)
			}
			specs[p.Name] = domain.Scalar(value)
			continue
		}

		raw, ok := special[key]
		if !ok || raw == nil {
			continue
		}
		specs[p.Name] = domain.List(texts(raw)...)
	}
	return specs, nil
}

// decodeBlob parses a spec blob keyed by param id. A blank blob is empty.
func (b *Builder) decodeBlob(blob string) (map[string]any, error) {
	values := make(map[string]any)
	if strings.TrimSpace(blob) == "" {
		return values, nil
	}
	if err := b.codec.Unmarshal([]byte(blob), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// text renders a decoded JSON scalar the way it was written.
func text(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// texts renders a per-SKU value list. A lone scalar becomes a one-entry list.
func texts(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{text(v)}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item == nil {
			continue
		}
		out = append(out, text(item))
	}
	return out
}

// firstImage returns the canonical entry of a comma-separated image list.
func firstImage(images string) string {
	if images == "" {
		return ""
	}
	first, _, _ := strings.Cut(images, ",")
	return strings.TrimSpace(first)
}
