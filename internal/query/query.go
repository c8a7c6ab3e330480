// Package query translates a free-text key and a facet filter map into the
// boolean query executed by the index store.
package query

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/utafrali/goodssearch/internal/domain"
	"github.com/utafrali/goodssearch/internal/engine"
	apperrors "github.com/utafrali/goodssearch/pkg/errors"
)

// Build returns a query with one mandatory AND match of key against the
// free-text field and one term filter per filter entry. A blank key or a
// filter value that is not a scalar is rejected with an InvalidRequest error.
func Build(key string, filter map[string]any) (engine.BoolQuery, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return engine.BoolQuery{}, apperrors.InvalidRequest("search key is required")
	}

	q := engine.BoolQuery{
		Must: []engine.Match{{
			Field:    engine.FieldAll,
			Query:    key,
			Operator: engine.OperatorAnd,
		}},
	}

	if len(filter) == 0 {
		return q, nil
	}

	// Sorted for a deterministic clause order; filters are a conjunction.
	names := make([]string, 0, len(filter))
	for name := range filter {
		names = append(names, name)
	}
	sort.Strings(names)

	q.Filter = make([]engine.Term, 0, len(names))
	for _, name := range names {
		value, ok := FilterValue(filter[name])
		if !ok {
			return engine.BoolQuery{}, apperrors.InvalidRequest(fmt.Sprintf("filter %q must be a single value", name))
		}
		q.Filter = append(q.Filter, engine.Term{
			Field: FilterField(name),
			Value: value,
		})
	}
	return q, nil
}

// FilterField maps a facet label to the document field it filters on.
func FilterField(label string) string {
	switch label {
	case domain.FilterBrand:
		return engine.FieldBrandID
	case domain.FilterCategory:
		return engine.FieldCid3
	default:
		return engine.SpecField(label)
	}
}

// FilterValue renders a decoded JSON scalar as the exact value stored in
// the index. ok is false for lists, objects and other composite values.
func FilterValue(v any) (value string, ok bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case bool:
		return strconv.FormatBool(val), true
	case fmt.Stringer:
		return val.String(), true
	case nil:
		return "", true
	}

	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Pointer:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}
