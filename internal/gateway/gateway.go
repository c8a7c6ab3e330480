// Package gateway defines the read-only lookups the search core performs
// against the item, category, brand and spec owners.
package gateway

import (
	"context"

	"github.com/utafrali/goodssearch/internal/domain"
)

// CategoryGateway resolves category names.
type CategoryGateway interface {
	// CategoryNames returns one name per id, in the order given.
	CategoryNames(ctx context.Context, ids []int64) ([]string, error)
}

// BrandGateway resolves brands.
type BrandGateway interface {
	Brand(ctx context.Context, id int64) (*domain.Brand, error)
}

// ProductGateway reads products, their spec blobs and their SKUs.
type ProductGateway interface {
	Spu(ctx context.Context, id int64) (*domain.Spu, error)
	Detail(ctx context.Context, spuID int64) (*domain.SpuDetail, error)
	ListSkus(ctx context.Context, spuID int64) ([]domain.Sku, error)

	// ListProductIDs pages through saleable product ids in ascending order.
	// page is 1-based.
	ListProductIDs(ctx context.Context, page, size int) ([]int64, error)
}

// SpecGateway lists spec params of a category.
type SpecGateway interface {
	// ListSpecParams returns the searchable params of category cid in
	// declaration order. With genericOnly only shared params are returned.
	ListSpecParams(ctx context.Context, cid int64, genericOnly bool) ([]domain.SpecParam, error)
}

// Catalog is the full set of lookups. The remote and postgres backends both
// implement it.
type Catalog interface {
	CategoryGateway
	BrandGateway
	ProductGateway
	SpecGateway
}
