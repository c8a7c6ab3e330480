package domain

// Filter labels with a dedicated document field. Any other filter key is
// treated as a spec param name.
const (
	FilterBrand    = "品牌"
	FilterCategory = "分类"
)

// SearchRequest holds all parameters for a faceted search.
type SearchRequest struct {
	Key    string         `json:"key" validate:"max=200"`
	Page   int            `json:"page"`
	Size   int            `json:"size"`
	Filter map[string]any `json:"filter" validate:"max=32"`
}

// CategoryFacet is one category bucket resolved to its name.
type CategoryFacet struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SpecFacet lists the distinct values of one spec param in the result set.
type SpecFacet struct {
	Name    string   `json:"k"`
	Options []string `json:"options"`
}

// SearchResult is the paginated, faceted search response. Specs is nil when
// the hits span more than one leaf category.
type SearchResult struct {
	Total      int64           `json:"total"`
	TotalPages int             `json:"total_page"`
	Items      []Goods         `json:"items"`
	Categories []CategoryFacet `json:"categories"`
	Brands     []Brand         `json:"brands"`
	Specs      []SpecFacet     `json:"specs"`
}
