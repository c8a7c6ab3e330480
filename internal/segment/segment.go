// Package segment classifies numeric spec values into the named ranges
// declared on their spec param.
package segment

import (
	"math"
	"strconv"
	"strings"

	"github.com/utafrali/goodssearch/internal/domain"
)

// Other is the label used when no segment contains the value.
const Other = "other"

// Label suffixes for open-ended and zero-based segments.
const (
	suffixAbove = " and above"
	suffixBelow = " and below"
)

// Classify returns the label of the first segment of p whose [begin, end)
// range contains value. Segments are "begin-end" or an open-ended "begin"
// (a trailing dash is also open-ended). Bounds cannot be negative since the
// first dash always separates them. Unparsable values are treated as 0; a
// value no segment contains, NaN included, gets Other.
func Classify(value string, p domain.SpecParam) string {
	val := toFloat(value)

	for _, segment := range strings.Split(p.Segments, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		lower, upper, _ := strings.Cut(segment, "-")
		lower, upper = strings.TrimSpace(lower), strings.TrimSpace(upper)
		begin := toFloat(lower)
		end := math.Inf(1)
		if upper != "" {
			end = toFloat(upper)
		}

		if val >= begin && val < end {
			return label(lower, upper, begin, p.Unit)
		}
	}

	return Other
}

func label(lower, upper string, begin float64, unit string) string {
	switch {
	case upper == "":
		return lower + unit + suffixAbove
	case begin == 0:
		return upper + unit + suffixBelow
	default:
		return lower + unit + "-" + upper + unit
	}
}

func toFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
