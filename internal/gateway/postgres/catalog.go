// Package postgres reads the catalog directly from the item database.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/goodssearch/internal/domain"
	"github.com/utafrali/goodssearch/pkg/database"
	apperrors "github.com/utafrali/goodssearch/pkg/errors"
)

// Catalog implements gateway.Catalog over the item service tables.
type Catalog struct {
	pool database.DBTX
}

// NewCatalog creates a PostgreSQL-backed catalog gateway.
func NewCatalog(pool database.DBTX) *Catalog {
	return &Catalog{pool: pool}
}

// ---------------------------------------------------------------------------
// CategoryGateway
// ---------------------------------------------------------------------------

// CategoryNames resolves the names of ids in one round-trip, preserving the
// order of ids. An unknown id is a NotFound error.
func (c *Catalog) CategoryNames(ctx context.Context, ids []int64) (_ []string, err error) {
	query := `SELECT id, name FROM tb_category WHERE id = ANY($1)`

	ctx, end := database.TraceQuery(ctx, "CategoryNames", query)
	defer func() { end(err) }()

	rows, err := c.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query category names: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]string, len(ids))
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		byID[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name, ok := byID[id]
		if !ok {
			return nil, apperrors.NotFound("category", id)
		}
		names = append(names, name)
	}
	return names, nil
}

// ---------------------------------------------------------------------------
// BrandGateway
// ---------------------------------------------------------------------------

// Brand retrieves a brand by id.
func (c *Catalog) Brand(ctx context.Context, id int64) (_ *domain.Brand, err error) {
	query := `
		SELECT id, name, COALESCE(image, ''), COALESCE(letter, '')
		FROM tb_brand
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "Brand", query)
	defer func() { end(err) }()

	var b domain.Brand
	err = c.pool.QueryRow(ctx, query, id).Scan(&b.ID, &b.Name, &b.Image, &b.Letter)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("brand", id)
		}
		return nil, fmt.Errorf("get brand: %w", err)
	}
	return &b, nil
}

// ---------------------------------------------------------------------------
// ProductGateway
// ---------------------------------------------------------------------------

// Spu retrieves a product by id.
func (c *Catalog) Spu(ctx context.Context, id int64) (_ *domain.Spu, err error) {
	query := `
		SELECT id, title, COALESCE(sub_title, ''), cid1, cid2, cid3, brand_id, saleable, valid, create_time
		FROM tb_spu
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "Spu", query)
	defer func() { end(err) }()

	var s domain.Spu
	err = c.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.Title,
		&s.SubTitle,
		&s.Cid1,
		&s.Cid2,
		&s.Cid3,
		&s.BrandID,
		&s.Saleable,
		&s.Valid,
		&s.CreateTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("spu", id)
		}
		return nil, fmt.Errorf("get spu: %w", err)
	}
	return &s, nil
}

// Detail retrieves the spec blobs of a product.
func (c *Catalog) Detail(ctx context.Context, spuID int64) (_ *domain.SpuDetail, err error) {
	query := `
		SELECT spu_id, COALESCE(generic_spec, ''), COALESCE(special_spec, '')
		FROM tb_spu_detail
		WHERE spu_id = $1`

	ctx, end := database.TraceQuery(ctx, "Detail", query)
	defer func() { end(err) }()

	var d domain.SpuDetail
	err = c.pool.QueryRow(ctx, query, spuID).Scan(&d.SpuID, &d.GenericSpec, &d.SpecialSpec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("spu detail", spuID)
		}
		return nil, fmt.Errorf("get spu detail: %w", err)
	}
	return &d, nil
}

// ListSkus returns the enabled SKUs of a product with their stock, ordered by id.
func (c *Catalog) ListSkus(ctx context.Context, spuID int64) (_ []domain.Sku, err error) {
	query := `
		SELECT s.id, s.spu_id, s.title, COALESCE(s.images, ''), s.price, s.enable, COALESCE(st.stock, 0)
		FROM tb_sku s
		LEFT JOIN tb_stock st ON st.sku_id = s.id
		WHERE s.spu_id = $1 AND s.enable = true
		ORDER BY s.id`

	ctx, end := database.TraceQuery(ctx, "ListSkus", query)
	defer func() { end(err) }()

	rows, err := c.pool.Query(ctx, query, spuID)
	if err != nil {
		return nil, fmt.Errorf("list skus: %w", err)
	}
	defer rows.Close()

	skus := make([]domain.Sku, 0)
	for rows.Next() {
		var s domain.Sku
		if err := rows.Scan(&s.ID, &s.SpuID, &s.Title, &s.Images, &s.Price, &s.Enabled, &s.Stock); err != nil {
			return nil, fmt.Errorf("scan sku: %w", err)
		}
		skus = append(skus, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skus: %w", err)
	}
	return skus, nil
}

// ListProductIDs pages through saleable, valid product ids.
func (c *Catalog) ListProductIDs(ctx context.Context, page, size int) (_ []int64, err error) {
	if page < 1 {
		page = 1
	}
	query := `
		SELECT id FROM tb_spu
		WHERE saleable = true AND valid = true
		ORDER BY id
		LIMIT $1 OFFSET $2`

	ctx, end := database.TraceQuery(ctx, "ListProductIDs", query)
	defer func() { end(err) }()

	rows, err := c.pool.Query(ctx, query, size, (page-1)*size)
	if err != nil {
		return nil, fmt.Errorf("list product ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, size)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product ids: %w", err)
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// SpecGateway
// ---------------------------------------------------------------------------

// ListSpecParams returns the searchable spec params of a category in id order.
func (c *Catalog) ListSpecParams(ctx context.Context, cid int64, genericOnly bool) (_ []domain.SpecParam, err error) {
	query := `
		SELECT id, cid, group_id, name, generic, "numeric", searching, COALESCE(unit, ''), COALESCE(segments, '')
		FROM tb_spec_param
		WHERE cid = $1 AND searching = true AND (generic = true OR NOT $2)
		ORDER BY id`

	ctx, end := database.TraceQuery(ctx, "ListSpecParams", query)
	defer func() { end(err) }()

	rows, err := c.pool.Query(ctx, query, cid, genericOnly)
	if err != nil {
		return nil, fmt.Errorf("list spec params: %w", err)
	}
	defer rows.Close()

	params := make([]domain.SpecParam, 0)
	for rows.Next() {
		var p domain.SpecParam
		if err := rows.Scan(
			&p.ID,
			&p.CategoryID,
			&p.GroupID,
			&p.Name,
			&p.Generic,
			&p.Numeric,
			&p.Searching,
			&p.Unit,
			&p.Segments,
		); err != nil {
			return nil, fmt.Errorf("scan spec param: %w", err)
		}
		params = append(params, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spec params: %w", err)
	}
	return params, nil
}
