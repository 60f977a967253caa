package engine

import (
	"sort"

	"quoteflow/internal/model"
)

// The availability ledger tracks which date spans have already been fetched
// from a whole-universe source. Spans are kept normalized: sorted, disjoint,
// with adjacent spans merged.

func normalizeSpans(spans []model.DateSpan) []model.DateSpan {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]model.DateSpan, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	out := []model.DateSpan{sorted[0]}
	for _, s := range sorted[1:] {
		last := &out[len(out)-1]
		if s.Start <= last.End+1 {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// subtractCoverage removes every day covered by the normalized ledger from
// the window and returns the remaining gaps in order.
func subtractCoverage(window model.DateSpan, covered []model.DateSpan) []model.DateSpan {
	var gaps []model.DateSpan
	cursor := window.Start
	for _, c := range covered {
		if c.End < cursor {
			continue
		}
		if c.Start > window.End {
			break
		}
		if c.Start > cursor {
			gaps = append(gaps, model.DateSpan{Start: cursor, End: c.Start - 1})
		}
		if c.End >= cursor {
			cursor = c.End + 1
		}
		if cursor > window.End {
			return gaps
		}
	}
	if cursor <= window.End {
		gaps = append(gaps, model.DateSpan{Start: cursor, End: window.End})
	}
	return gaps
}

// markCovered records a newly fetched span and renormalizes the ledger.
func markCovered(covered []model.DateSpan, s model.DateSpan) []model.DateSpan {
	if s.Start > s.End {
		return covered
	}
	return normalizeSpans(append(covered, s))
}

// splitSpan cuts a span into runs of at most maxDays days. Zero or negative
// maxDays leaves the span whole.
func splitSpan(s model.DateSpan, maxDays int) []model.DateSpan {
	if maxDays <= 0 || s.Days() <= maxDays {
		return []model.DateSpan{s}
	}
	var out []model.DateSpan
	for start := s.Start; start <= s.End; start = start.AddDays(maxDays) {
		end := start.AddDays(maxDays - 1)
		if end > s.End {
			end = s.End
		}
		out = append(out, model.DateSpan{Start: start, End: end})
	}
	return out
}
