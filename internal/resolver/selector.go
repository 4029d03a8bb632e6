package resolver

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dacsang97/mdbind/internal/models"
	"github.com/samber/lo"
)

// FallbackOrdinal replaces any selector token that is not a number
const FallbackOrdinal = 1

// Span is a closed ordinal interval; a single chapter has From == To.
type Span struct {
	From int
	To   int
}

// Contains reports whether n lies in the span
func (s Span) Contains(n int) bool {
	return n >= s.From && n <= s.To
}

func (s Span) String() string {
	if s.From == s.To {
		return strconv.Itoa(s.From)
	}
	return fmt.Sprintf("%d-%d", s.From, s.To)
}

// Selector is a parsed chapter selector such as "4", "1,3,9" or "2-7".
type Selector struct {
	Raw   string
	Spans []Span
}

// Contains reports whether any span of the selector covers n
func (s Selector) Contains(n int) bool {
	return lo.SomeBy(s.Spans, func(span Span) bool { return span.Contains(n) })
}

// Singles returns the ordinals requested as single numbers, ascending
func (s Selector) Singles() []int {
	singles := lo.FilterMap(s.Spans, func(span Span, _ int) (int, bool) {
		return span.From, span.From == span.To
	})
	singles = lo.Uniq(singles)
	sort.Ints(singles)
	return singles
}

func (s Selector) String() string {
	return strings.Join(lo.Map(s.Spans, func(span Span, _ int) string { return span.String() }), ",")
}

// ParseSelector parses a comma separated list of ordinals and closed ranges.
// Malformed number tokens resolve to FallbackOrdinal; every such substitution
// is returned as a *models.SelectorParseError so the caller can warn about it.
// A range whose upper bound is below its lower bound selects the lower bound.
func ParseSelector(raw string) (Selector, []error) {
	sel := Selector{Raw: raw}
	var warnings []error

	if strings.TrimSpace(raw) == "" {
		warnings = append(warnings, &models.SelectorParseError{Token: raw, Fallback: FallbackOrdinal})
		sel.Spans = []Span{{From: FallbackOrdinal, To: FallbackOrdinal}}
		return sel, warnings
	}

	parse := func(token string) int {
		n, err := strconv.Atoi(strings.TrimSpace(token))
		if err != nil || n < 0 {
			warnings = append(warnings, &models.SelectorParseError{Token: token, Fallback: FallbackOrdinal})
			return FallbackOrdinal
		}
		return n
	}

	for _, item := range strings.Split(raw, ",") {
		fromTok, toTok, isRange := strings.Cut(item, "-")
		from := parse(fromTok)
		to := from
		if isRange {
			to = parse(toTok)
		}
		if to < from {
			to = from
		}
		sel.Spans = append(sel.Spans, Span{From: from, To: to})
	}

	sel.Spans = lo.Uniq(sel.Spans)
	return sel, warnings
}
