package domain

import "time"

// Spu is a product as owned by the item service. It is read-only here.
type Spu struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	SubTitle   string    `json:"sub_title"`
	Cid1       int64     `json:"cid1"`
	Cid2       int64     `json:"cid2"`
	Cid3       int64     `json:"cid3"`
	BrandID    int64     `json:"brand_id"`
	Saleable   bool      `json:"saleable"`
	Valid      bool      `json:"valid"`
	CreateTime time.Time `json:"create_time"`
}

// CategoryIDs returns the category path from most general to most specific.
func (s *Spu) CategoryIDs() []int64 {
	return []int64{s.Cid1, s.Cid2, s.Cid3}
}

// SpuDetail holds the raw specification blobs of a product. Both blobs are
// JSON objects keyed by the spec param id.
type SpuDetail struct {
	SpuID       int64  `json:"spu_id"`
	GenericSpec string `json:"generic_spec"`
	SpecialSpec string `json:"special_spec"`
}

// Sku is one sellable variant of a product. Price is in minor currency units.
type Sku struct {
	ID      int64  `json:"id"`
	SpuID   int64  `json:"spu_id"`
	Title   string `json:"title"`
	Price   int64  `json:"price"`
	Images  string `json:"images"`
	Stock   int64  `json:"stock"`
	Enabled bool   `json:"enabled"`
}

// Brand is a product brand.
type Brand struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Image  string `json:"image,omitempty"`
	Letter string `json:"letter,omitempty"`
}

// Category is one node of the three-level category tree.
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID int64  `json:"parent_id"`
	IsParent bool   `json:"is_parent"`
}

// SpecParam defines one searchable attribute of a leaf category.
type SpecParam struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"cid"`
	GroupID    int64  `json:"group_id"`
	Name       string `json:"name"`
	Generic    bool   `json:"generic"`
	Numeric    bool   `json:"numeric"`
	Searching  bool   `json:"searching"`
	Unit       string `json:"unit"`
	Segments   string `json:"segments"`
}
