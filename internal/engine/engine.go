package engine

import (
	"context"
	"strconv"

	"github.com/utafrali/goodssearch/internal/domain"
)

// Document fields addressed by queries and aggregations.
const (
	FieldID         = "id"
	FieldAll        = "all"
	FieldSubTitle   = "sub_title"
	FieldCid3       = "cid3"
	FieldBrandID    = "brand_id"
	FieldSkus       = "skus"
	FieldSpecPrefix = "specs."
	keywordSuffix   = ".keyword"
)

// SpecField returns the exact-value field of the named spec param.
func SpecField(name string) string {
	return FieldSpecPrefix + name + keywordSuffix
}

// Operator joins the terms of a full-text match.
type Operator string

const (
	OperatorAnd Operator = "and"
	OperatorOr  Operator = "or"
)

// Match is a full-text clause against an analyzed field.
type Match struct {
	Field    string
	Query    string
	Operator Operator
}

// Term is an exact-value filter clause. It does not affect scoring.
type Term struct {
	Field string
	Value string
}

// BoolQuery combines scoring must clauses with non-scoring filters.
type BoolQuery struct {
	Must   []Match
	Filter []Term
}

// TermsAgg aggregates the distinct values of Field under Name.
type TermsAgg struct {
	Name  string
	Field string
	Size  int
}

// SourceFilter restricts which document fields hits carry. A nil filter
// returns whole documents; an empty Includes with ExcludeAll returns none.
type SourceFilter struct {
	Includes   []string
	ExcludeAll bool
}

// Query is one request to the index store. From and Size are 0-based
// offsets into the ordered hit list.
type Query struct {
	Bool   BoolQuery
	From   int
	Size   int
	Source *SourceFilter
	Aggs   []TermsAgg
}

// Bucket is one distinct aggregated value. Key holds the textual form of the
// value, numeric keys included.
type Bucket struct {
	Key      string
	DocCount int64
}

// Int64 decodes the bucket key of a long field.
func (b Bucket) Int64() (int64, error) {
	return strconv.ParseInt(b.Key, 10, 64)
}

// Result is the outcome of a Query.
type Result struct {
	Total        int64
	Hits         []domain.Goods
	Aggregations map[string][]Bucket
}

// IndexStore defines the operations the search core needs from the
// inverted-index engine. Implementations may use Elasticsearch or memory.
type IndexStore interface {
	// Upsert creates or replaces the document with the same id.
	Upsert(ctx context.Context, goods *domain.Goods) error

	// Delete removes a document by id. Deleting an absent id succeeds.
	Delete(ctx context.Context, id int64) error

	// Query executes a boolean query with aggregations.
	Query(ctx context.Context, q *Query) (*Result, error)
}
