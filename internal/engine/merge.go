package engine

import (
	"sort"

	"quoteflow/internal/model"
)

// upsertTickers folds fresh catalog rows into the cached catalog. Rows
// sharing an identity key are replaced whole by the fresh row; cached rows
// without a fresh counterpart survive; the rest is appended.
func upsertTickers(cached, fresh []model.Ticker) []model.Ticker {
	replacement := make(map[model.TickerKey]model.Ticker, len(fresh))
	for _, t := range fresh {
		replacement[t.Key()] = t
	}

	out := make([]model.Ticker, 0, len(cached)+len(fresh))
	for _, t := range cached {
		if repl, ok := replacement[t.Key()]; ok {
			out = append(out, repl)
			delete(replacement, t.Key())
			continue
		}
		out = append(out, t)
	}
	// Append rows that had no cached counterpart, in input order.
	for _, t := range fresh {
		if _, ok := replacement[t.Key()]; ok {
			out = append(out, t)
			delete(replacement, t.Key())
		}
	}
	return out
}

// upsertQuotes folds freshly fetched quote rows into a source's cached
// table, last write wins on (symbol, date). The result is sorted by date
// then symbol so persisted snapshots stay deterministic.
func upsertQuotes(cached, fresh []model.Quote) []model.Quote {
	replacement := make(map[model.QuoteKey]model.Quote, len(fresh))
	for _, q := range fresh {
		replacement[q.Key()] = q
	}

	out := make([]model.Quote, 0, len(cached)+len(fresh))
	for _, q := range cached {
		if repl, ok := replacement[q.Key()]; ok {
			out = append(out, repl)
			delete(replacement, q.Key())
			continue
		}
		out = append(out, q)
	}
	for _, q := range fresh {
		if _, ok := replacement[q.Key()]; ok {
			out = append(out, q)
			delete(replacement, q.Key())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}
