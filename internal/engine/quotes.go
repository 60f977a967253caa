package engine

import (
	"context"
	"errors"
	"fmt"

	"quoteflow/internal/model"
	"quoteflow/internal/source"
	"quoteflow/internal/store"
	"quoteflow/logger"
)

// ErrInvalidRange is returned when a quote request's start date falls after
// its end date. It fails fast, before any fetch.
var ErrInvalidRange = errors.New("start date must not be after end date")

// TickerSpec names one requested instrument. SourceKey may be empty, in
// which case the symbol is resolved through the synced catalog.
type TickerSpec struct {
	Symbol    string
	SourceKey string
}

// GetQuotes returns quotes for the requested tickers over the inclusive
// [start, end] window, fetching only what the cache is missing. Nil start
// defaults to today minus the source's settlement window; nil end defaults
// to today. An empty spec list syncs every known ticker from every source.
func (e *Engine) GetQuotes(ctx context.Context, specs []TickerSpec, start, end *model.Date) (*QuoteTable, error) {
	log := e.log.WithComponent("quote_sync")

	if start != nil && end != nil && *start > *end {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, *start, *end)
	}

	resolved, err := e.resolveSpecs(ctx, specs)
	if err != nil {
		return nil, err
	}
	if len(resolved) == 0 {
		log.Warn("no requested tickers matched any known source")
		return NewQuoteTable(nil), nil
	}

	symbolsBySource := make(map[string][]string)
	var keys []string
	for _, spec := range resolved {
		if _, ok := symbolsBySource[spec.SourceKey]; !ok {
			keys = append(keys, spec.SourceKey)
		}
		symbolsBySource[spec.SourceKey] = appendUnique(symbolsBySource[spec.SourceKey], spec.Symbol)
	}

	selected := e.registry.Select(keys)
	if len(selected) < len(keys) {
		known := make(map[string]struct{}, len(selected))
		for _, src := range selected {
			known[src.Key()] = struct{}{}
		}
		for _, key := range keys {
			if _, ok := known[key]; !ok {
				log.WithFields(logger.Fields{"source": key}).Warn("no registered source for key, skipping its tickers")
			}
		}
	}

	var rows []model.Quote
	for _, src := range selected {
		part, err := e.syncQuotes(ctx, src, symbolsBySource[src.Key()], start, end)
		if err != nil {
			return nil, err
		}
		rows = append(rows, part...)
	}
	return NewQuoteTable(rows), nil
}

// resolveSpecs assigns a source to every requested ticker. Specs without an
// explicit source are looked up in the freshly synced catalog and may match
// several sources; specs matching nothing are dropped with a warning. An
// empty spec list expands to the whole known universe.
func (e *Engine) resolveSpecs(ctx context.Context, specs []TickerSpec) ([]TickerSpec, error) {
	log := e.log.WithComponent("quote_sync")

	if len(specs) == 0 {
		log.Warn("no tickers requested; syncing quotes for all known tickers from all sources, this may take a while")
		catalog, err := e.GetTickers(ctx, nil, nil)
		if err != nil {
			return nil, err
		}
		out := make([]TickerSpec, 0, catalog.Len())
		for _, t := range catalog.Rows() {
			out = append(out, TickerSpec{Symbol: t.Symbol, SourceKey: t.SourceKey})
		}
		return out, nil
	}

	var resolved []TickerSpec
	var unresolvedSymbols []string
	for _, spec := range specs {
		if spec.Symbol == "" {
			log.Warn("dropping ticker spec without symbol")
			continue
		}
		if spec.SourceKey != "" {
			resolved = append(resolved, spec)
			continue
		}
		unresolvedSymbols = append(unresolvedSymbols, spec.Symbol)
	}

	if len(unresolvedSymbols) > 0 {
		catalog, err := e.GetTickers(ctx, TickerFilters{"symbol": unresolvedSymbols}, nil)
		if err != nil {
			return nil, err
		}
		matched := make(map[string]bool, len(unresolvedSymbols))
		for _, t := range catalog.Rows() {
			matched[t.Symbol] = true
			resolved = append(resolved, TickerSpec{Symbol: t.Symbol, SourceKey: t.SourceKey})
		}
		for _, sym := range unresolvedSymbols {
			if !matched[sym] {
				log.WithFields(logger.Fields{"symbol": sym}).Warn("ticker not found in any known source, excluding from result")
			}
		}
	}
	return resolved, nil
}

// syncQuotes brings one source's quote cache up to date for the requested
// symbols and window and returns the matching slice. Fetch failures are
// logged and contribute nothing; the sync never aborts on them.
func (e *Engine) syncQuotes(ctx context.Context, src source.Source, symbols []string, start, end *model.Date) ([]model.Quote, error) {
	key := src.Key()
	cfg := src.Config()
	log := e.log.WithComponent("quote_sync").WithFields(logger.Fields{"source": key})

	now := e.now()
	today := model.DateOf(now)
	// Data newer than this boundary may not be settled at the source yet.
	settled := model.DateOf(now.Add(-cfg.DataRefreshInterval))

	window := model.DateSpan{Start: settled, End: today}
	if start != nil {
		window.Start = *start
	}
	if end != nil {
		window.End = *end
	}

	cached, err := e.store.LoadQuotes(key)
	if errors.Is(err, store.ErrNotFound) {
		cached = nil
	} else if err != nil {
		return nil, fmt.Errorf("load quotes for %s: %w", key, err)
	}

	var fresh []model.Quote
	if cfg.Strategy.Has(model.StrategyAllTickers) {
		fresh, err = e.fetchUniverse(ctx, src, window, settled, log)
	} else {
		fresh, err = e.fetchSymbols(ctx, src, cached, symbols, window, log)
	}
	if err != nil {
		return nil, err
	}

	merged := cached
	if len(fresh) > 0 {
		merged = upsertQuotes(cached, fresh)
		if err := e.store.SaveQuotes(key, merged); err != nil {
			return nil, fmt.Errorf("save quotes for %s: %w", key, err)
		}
		logger.IncrementSnapshotWrite()
		logger.AddRowsMerged(key, len(fresh))
	}

	want := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		want[sym] = struct{}{}
	}
	var out []model.Quote
	for _, q := range merged {
		if _, ok := want[q.Symbol]; !ok {
			continue
		}
		if !window.Contains(q.Date) {
			continue
		}
		q.SourceKey = key
		out = append(out, q)
	}
	return out, nil
}

// fetchSymbols runs the per-symbol gap plan against a DEFAULT-strategy
// source.
func (e *Engine) fetchSymbols(ctx context.Context, src source.Source, cached []model.Quote, symbols []string, window model.DateSpan, log *logger.Entry) ([]model.Quote, error) {
	var fresh []model.Quote
	for _, batch := range planSymbolBatches(cached, symbols, window, src.Config().GroupDays()) {
		span := batch.span
		log.WithFields(logger.Fields{
			"symbols": len(batch.symbols),
			"start":   span.Start.String(),
			"end":     span.End.String(),
		}).Debug("fetching quote batch")

		rows, err := src.Quotes(ctx, batch.symbols, &span.Start, &span.End)
		logger.IncrementQuoteBatch(src.Key())
		if err != nil {
			log.WithError(err).Error("quote batch fetch failed, continuing")
			continue
		}
		fresh = append(fresh, e.coerceQuotes(src.Key(), rows, log)...)
	}
	return fresh, nil
}

// fetchUniverse runs the ledger-driven plan against an ALL_TICKERS source.
// Spans starting inside the settlement window are skipped this cycle and
// retried on a later call; fetched spans are recorded in the ledger clipped
// to the settled boundary.
func (e *Engine) fetchUniverse(ctx context.Context, src source.Source, window model.DateSpan, settled model.Date, log *logger.Entry) ([]model.Quote, error) {
	key := src.Key()

	covered, err := e.store.LoadSpans(key)
	if errors.Is(err, store.ErrNotFound) {
		covered = nil
	} else if err != nil {
		return nil, fmt.Errorf("load availability ledger for %s: %w", key, err)
	}

	var fresh []model.Quote
	ledgerDirty := false
	for _, span := range planUniverseSpans(covered, window, src.Config().GroupDays()) {
		if span.Start > settled {
			log.WithFields(logger.Fields{
				"start": span.Start.String(),
				"end":   span.End.String(),
			}).Debug("span not settled yet, skipping until a later call")
			continue
		}

		rows, err := src.Quotes(ctx, nil, &span.Start, &span.End)
		logger.IncrementQuoteBatch(key)
		if err != nil {
			log.WithError(err).Error("universe fetch failed, span stays unrecorded")
			continue
		}
		fresh = append(fresh, e.coerceQuotes(key, rows, log)...)

		mark := span
		if mark.End > settled {
			mark.End = settled
		}
		covered = markCovered(covered, mark)
		ledgerDirty = true
	}

	if ledgerDirty {
		if err := e.store.SaveSpans(key, covered); err != nil {
			return nil, fmt.Errorf("save availability ledger for %s: %w", key, err)
		}
		logger.IncrementSnapshotWrite()
	}
	return fresh, nil
}

// coerceQuotes stamps the source key and drops rows the cache schema cannot
// hold. Bad rows cost a warning, never the cycle.
func (e *Engine) coerceQuotes(key string, rows []model.Quote, log *logger.Entry) []model.Quote {
	out := make([]model.Quote, 0, len(rows))
	for _, q := range rows {
		if q.Symbol == "" {
			log.Warn("dropping quote row without symbol")
			continue
		}
		q.SourceKey = key
		out = append(out, q)
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
