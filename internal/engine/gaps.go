package engine

import (
	"sort"

	"quoteflow/internal/model"
)

// fetchBatch is one planned adapter call: the symbols to ask for and the
// inclusive date span to cover.
type fetchBatch struct {
	symbols []string
	span    model.DateSpan
}

// planSymbolBatches computes the missing (symbol, date) pairs for a
// per-symbol queryable source and groups them into batches. Each symbol's
// missing dates form contiguous runs; runs longer than groupDays are split.
// Batches covering the same span are coalesced so one call fetches every
// symbol missing that span.
func planSymbolBatches(cached []model.Quote, symbols []string, window model.DateSpan, groupDays int) []fetchBatch {
	if window.Start > window.End || len(symbols) == 0 {
		return nil
	}

	have := make(map[model.QuoteKey]struct{}, len(cached))
	for _, q := range cached {
		have[q.Key()] = struct{}{}
	}

	sortedSymbols := make([]string, len(symbols))
	copy(sortedSymbols, symbols)
	sort.Strings(sortedSymbols)

	bySpan := make(map[model.DateSpan][]string)
	var spanOrder []model.DateSpan
	for _, sym := range sortedSymbols {
		for _, run := range missingRuns(have, sym, window) {
			for _, span := range splitSpan(run, groupDays) {
				if _, seen := bySpan[span]; !seen {
					spanOrder = append(spanOrder, span)
				}
				bySpan[span] = append(bySpan[span], sym)
			}
		}
	}

	sort.Slice(spanOrder, func(i, j int) bool {
		if spanOrder[i].Start != spanOrder[j].Start {
			return spanOrder[i].Start < spanOrder[j].Start
		}
		return spanOrder[i].End < spanOrder[j].End
	})

	batches := make([]fetchBatch, 0, len(spanOrder))
	for _, span := range spanOrder {
		batches = append(batches, fetchBatch{symbols: bySpan[span], span: span})
	}
	return batches
}

// missingRuns returns the contiguous runs of days in the window for which
// the cache has no row for sym.
func missingRuns(have map[model.QuoteKey]struct{}, sym string, window model.DateSpan) []model.DateSpan {
	var runs []model.DateSpan
	var current *model.DateSpan
	for d := window.Start; d <= window.End; d++ {
		if _, ok := have[model.QuoteKey{Symbol: sym, Date: d}]; ok {
			current = nil
			continue
		}
		if current != nil && current.End == d-1 {
			current.End = d
			continue
		}
		runs = append(runs, model.DateSpan{Start: d, End: d})
		current = &runs[len(runs)-1]
	}
	return runs
}

// planUniverseSpans computes the date spans a whole-universe source still
// needs to be asked for: the window minus ledger coverage, split at the
// group period.
func planUniverseSpans(covered []model.DateSpan, window model.DateSpan, groupDays int) []model.DateSpan {
	if window.Start > window.End {
		return nil
	}
	var out []model.DateSpan
	for _, gap := range subtractCoverage(window, normalizeSpans(covered)) {
		out = append(out, splitSpan(gap, groupDays)...)
	}
	return out
}
