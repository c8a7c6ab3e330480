package domain

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Goods is the denormalized search document built from one product.
type Goods struct {
	ID         int64                `json:"id"`
	All        string               `json:"all,omitempty"`
	SubTitle   string               `json:"sub_title,omitempty"`
	Cid1       int64                `json:"cid1,omitempty"`
	Cid2       int64                `json:"cid2,omitempty"`
	Cid3       int64                `json:"cid3,omitempty"`
	BrandID    int64                `json:"brand_id,omitempty"`
	CreateTime *time.Time           `json:"create_time,omitempty"`
	Price      []int64              `json:"price,omitempty"`
	Skus       string               `json:"skus,omitempty"`
	Specs      map[string]SpecValue `json:"specs,omitempty"`
}

// SkuBrief is the compact per-SKU entry serialized into Goods.Skus.
type SkuBrief struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Price int64  `json:"price"`
	Image string `json:"image"`
}

// SpecValue is a resolved attribute value: a single string for generic
// attributes, a list of strings for per-SKU attributes.
type SpecValue struct {
	scalar string
	list   []string
	isList bool
}

// Scalar returns a single-valued attribute.
func Scalar(v string) SpecValue {
	return SpecValue{scalar: v}
}

// List returns a multi-valued attribute.
func List(v ...string) SpecValue {
	if v == nil {
		v = []string{}
	}
	return SpecValue{list: v, isList: true}
}

// IsList reports whether the value is a per-SKU list.
func (v SpecValue) IsList() bool { return v.isList }

// String returns the scalar value, or "" for list values.
func (v SpecValue) String() string { return v.scalar }

// Values returns every term carried by the value.
func (v SpecValue) Values() []string {
	if v.isList {
		return v.list
	}
	return []string{v.scalar}
}

// MarshalJSON encodes scalars as strings and lists as arrays.
func (v SpecValue) MarshalJSON() ([]byte, error) {
	if v.isList {
		return json.Marshal(v.list)
	}
	return json.Marshal(v.scalar)
}

// UnmarshalJSON accepts either a string or an array of strings.
func (v *SpecValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("decode spec list: %w", err)
		}
		*v = List(list...)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode spec scalar: %w", err)
	}
	*v = Scalar(s)
	return nil
}
