package facet

// ResolutionKind classifies how many leaf categories a result set spans.
type ResolutionKind int

const (
	// ResolvedNone means the query matched no documents.
	ResolvedNone ResolutionKind = iota
	// ResolvedOne means every hit shares one leaf category.
	ResolvedOne
	// ResolvedMany means hits span several leaf categories, so no single
	// spec param list applies.
	ResolvedMany
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolvedNone:
		return "none"
	case ResolvedOne:
		return "one"
	case ResolvedMany:
		return "many"
	default:
		return "unknown"
	}
}

// CategoryResolution is the decision point between the primary pass and the
// spec facet pass.
type CategoryResolution struct {
	Kind       ResolutionKind
	CategoryID int64
}

// ResolveCategory decides from the distinct category buckets of the primary
// pass. Only ResolvedOne carries a CategoryID.
func ResolveCategory(categoryIDs []int64) CategoryResolution {
	switch len(categoryIDs) {
	case 0:
		return CategoryResolution{Kind: ResolvedNone}
	case 1:
		return CategoryResolution{Kind: ResolvedOne, CategoryID: categoryIDs[0]}
	default:
		return CategoryResolution{Kind: ResolvedMany}
	}
}

// WantsSpecFacets reports whether the spec facet pass should run.
func (r CategoryResolution) WantsSpecFacets() bool {
	return r.Kind == ResolvedOne
}
