// Package gatewaytest provides an in-memory catalog for tests.
package gatewaytest

import (
	"context"
	"sort"
	"sync"

	"github.com/utafrali/goodssearch/internal/domain"
	apperrors "github.com/utafrali/goodssearch/pkg/errors"
)

// Method names accepted by Fail.
const (
	MethodSpu            = "Spu"
	MethodDetail         = "Detail"
	MethodListSkus       = "ListSkus"
	MethodListProductIDs = "ListProductIDs"
	MethodCategoryNames  = "CategoryNames"
	MethodBrand          = "Brand"
	MethodListSpecParams = "ListSpecParams"
)

// Catalog is an in-memory gateway.Catalog. Missing records are NotFound
// errors, matching the real backends. It is safe for concurrent use.
type Catalog struct {
	mu         sync.Mutex
	spus       map[int64]domain.Spu
	details    map[int64]domain.SpuDetail
	skus       map[int64][]domain.Sku
	brands     map[int64]domain.Brand
	categories map[int64]string
	params     map[int64][]domain.SpecParam
	failures   map[string]error
	calls      map[string]int
}

// NewCatalog returns an empty fake catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		spus:       make(map[int64]domain.Spu),
		details:    make(map[int64]domain.SpuDetail),
		skus:       make(map[int64][]domain.Sku),
		brands:     make(map[int64]domain.Brand),
		categories: make(map[int64]string),
		params:     make(map[int64][]domain.SpecParam),
		failures:   make(map[string]error),
		calls:      make(map[string]int),
	}
}

// AddSpu stores a product together with its detail and SKUs.
func (c *Catalog) AddSpu(spu domain.Spu, detail domain.SpuDetail, skus ...domain.Sku) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spus[spu.ID] = spu
	detail.SpuID = spu.ID
	c.details[spu.ID] = detail
	c.skus[spu.ID] = skus
}

// RemoveDetail deletes the detail record of a product.
func (c *Catalog) RemoveDetail(spuID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.details, spuID)
}

// AddBrand stores a brand.
func (c *Catalog) AddBrand(b domain.Brand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.brands[b.ID] = b
}

// AddCategory stores a category name.
func (c *Catalog) AddCategory(id int64, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories[id] = name
}

// SetSpecParams replaces the spec params of a category.
func (c *Catalog) SetSpecParams(cid int64, params ...domain.SpecParam) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params[cid] = params
}

// Fail makes every later call of method return err.
func (c *Catalog) Fail(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[method] = err
}

// Calls returns how often method was invoked.
func (c *Catalog) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// enter records the call and returns the configured failure, if any.
func (c *Catalog) enter(method string) error {
	c.calls[method]++
	return c.failures[method]
}

func (c *Catalog) Spu(_ context.Context, id int64) (*domain.Spu, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(MethodSpu); err != nil {
		return nil, err
	}
	s, ok := c.spus[id]
	if !ok {
		return nil, apperrors.NotFound("spu", id)
	}
	return &s, nil
}

func (c *Catalog) Detail(_ context.Context, spuID int64) (*domain.SpuDetail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(MethodDetail); err != nil {
		return nil, err
	}
	d, ok := c.details[spuID]
	if !ok {
		return nil, apperrors.NotFound("spu detail", spuID)
	}
	return &d, nil
}

func (c *Catalog) ListSkus(_ context.Context, spuID int64) ([]domain.Sku, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(MethodListSkus); err != nil {
		return nil, err
	}
	return append([]domain.Sku{}, c.skus[spuID]...), nil
}

func (c *Catalog) ListProductIDs(_ context.Context, page, size int) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(MethodListProductIDs); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(c.spus))
	for id, s := range c.spus {
		if s.Saleable && s.Valid {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(ids) {
		return []int64{}, nil
	}
	end := start + size
	if end > len(ids) {
		end = len(ids)
	}
	return ids[start:end], nil
}

func (c *Catalog) CategoryNames(_ context.Context, ids []int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(MethodCategoryNames); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name, ok := c.categories[id]
		if !ok {
			return nil, apperrors.NotFound("category", id)
		}
		names = append(names, name)
	}
	return names, nil
}

func (c *Catalog) Brand(_ context.Context, id int64) (*domain.Brand, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(MethodBrand); err != nil {
		return nil, err
	}
	b, ok := c.brands[id]
	if !ok {
		return nil, apperrors.NotFound("brand", id)
	}
	return &b, nil
}

func (c *Catalog) ListSpecParams(_ context.Context, cid int64, genericOnly bool) ([]domain.SpecParam, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter(MethodListSpecParams); err != nil {
		return nil, err
	}
	params := make([]domain.SpecParam, 0, len(c.params[cid]))
	for _, p := range c.params[cid] {
		if genericOnly && !p.Generic {
			continue
		}
		params = append(params, p)
	}
	return params, nil
}
