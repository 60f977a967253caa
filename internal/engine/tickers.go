package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"quoteflow/internal/model"
	"quoteflow/internal/store"
	"quoteflow/logger"
)

// TickerFilters restricts catalog output by column value sets. Filters on
// different columns are OR-combined: a row matches when any filter column
// contains its value. Unknown column names are ignored.
type TickerFilters map[string][]string

// GetTickers syncs the instrument catalog for the selected sources and
// returns it, optionally filtered. The merged catalog is persisted once per
// call even when no source needed refreshing.
func (e *Engine) GetTickers(ctx context.Context, filters TickerFilters, sourceKeys []string) (*TickerTable, error) {
	log := e.log.WithComponent("ticker_sync")

	catalog, err := e.store.LoadTickers()
	if errors.Is(err, store.ErrNotFound) {
		log.Debug("no cached catalog yet")
		catalog = nil
	} else if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	freshness := catalogFreshness(catalog)
	now := e.now()

	for _, src := range e.registry.Select(sourceKeys) {
		key := src.Key()
		if !e.needsTickerRefresh(src.Config(), freshness, key, now) {
			log.WithFields(logger.Fields{"source": key}).Debug("catalog up to date, skipping fetch")
			continue
		}

		rows, err := src.Tickers(ctx)
		logger.IncrementTickerFetch(key)
		if err != nil {
			log.WithFields(logger.Fields{"source": key}).WithError(err).Error("ticker fetch failed, keeping cached rows")
			continue
		}

		stamped := make([]model.Ticker, 0, len(rows))
		for _, t := range rows {
			if t.Symbol == "" {
				log.WithFields(logger.Fields{"source": key}).Warn("dropping ticker row without symbol")
				continue
			}
			t.SourceKey = key
			t.LastUpdated = now
			stamped = append(stamped, t)
		}

		catalog = upsertTickers(catalog, stamped)
		log.WithFields(logger.Fields{"source": key, "rows": len(stamped)}).Info("catalog refreshed")
	}

	if err := e.store.SaveTickers(catalog); err != nil {
		return nil, fmt.Errorf("save catalog: %w", err)
	}
	logger.IncrementSnapshotWrite()

	rows := filterTickers(catalog, filters, sourceKeys)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SourceKey != rows[j].SourceKey {
			return rows[i].SourceKey < rows[j].SourceKey
		}
		return rows[i].Symbol < rows[j].Symbol
	})
	return NewTickerTable(rows), nil
}

// needsTickerRefresh decides whether a source's catalog must be fetched. A
// source with no cached rows is always fetched; a nil refresh interval means
// the catalog is fetched once and then never refreshed automatically.
func (e *Engine) needsTickerRefresh(cfg model.SourceConfig, freshness map[string]time.Time, key string, now time.Time) bool {
	last, cached := freshness[key]
	if !cached {
		return true
	}
	if cfg.TickerRefreshInterval == nil {
		return false
	}
	return now.Sub(last) >= *cfg.TickerRefreshInterval
}

// catalogFreshness maps each source key to the oldest last_updated stamp of
// its cached rows. The oldest stamp is the conservative choice: a source is
// only considered fresh when all of its rows are.
func catalogFreshness(catalog []model.Ticker) map[string]time.Time {
	out := make(map[string]time.Time)
	for _, t := range catalog {
		if cur, ok := out[t.SourceKey]; !ok || t.LastUpdated.Before(cur) {
			out[t.SourceKey] = t.LastUpdated
		}
	}
	return out
}

func filterTickers(catalog []model.Ticker, filters TickerFilters, sourceKeys []string) []model.Ticker {
	var keySet map[string]struct{}
	if len(sourceKeys) > 0 {
		keySet = make(map[string]struct{}, len(sourceKeys))
		for _, k := range sourceKeys {
			keySet[k] = struct{}{}
		}
	}

	valueSets := make(map[string]map[string]struct{})
	for column, values := range filters {
		switch column {
		case "symbol", "name", "isin", "source_key":
		default:
			continue
		}
		set := make(map[string]struct{}, len(values))
		for _, v := range values {
			set[v] = struct{}{}
		}
		valueSets[column] = set
	}

	out := make([]model.Ticker, 0, len(catalog))
	for _, t := range catalog {
		if keySet != nil {
			if _, ok := keySet[t.SourceKey]; !ok {
				continue
			}
		}
		if len(valueSets) > 0 && !matchesAny(t, valueSets) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesAny(t model.Ticker, valueSets map[string]map[string]struct{}) bool {
	for column, set := range valueSets {
		var value string
		switch column {
		case "symbol":
			value = t.Symbol
		case "name":
			value = t.Name
		case "isin":
			if t.ISIN == nil {
				continue
			}
			value = *t.ISIN
		case "source_key":
			value = t.SourceKey
		}
		if _, ok := set[value]; ok {
			return true
		}
	}
	return false
}
