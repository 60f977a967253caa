// Package store persists catalog, quote and availability snapshots as
// Parquet tables. A snapshot is always replaced whole; the engine owns the
// only writer.
package store

import (
	"errors"

	"quoteflow/internal/model"
)

// ErrNotFound marks a snapshot that has never been written. First runs hit
// this on every load; callers substitute an empty table and carry on.
var ErrNotFound = errors.New("snapshot not found")

// Store is the snapshot persistence contract consumed by the sync engine.
// Quote tables and availability spans are partitioned per source key; the
// ticker catalog is a single table covering all sources.
type Store interface {
	LoadTickers() ([]model.Ticker, error)
	SaveTickers(tickers []model.Ticker) error

	LoadQuotes(sourceKey string) ([]model.Quote, error)
	SaveQuotes(sourceKey string, quotes []model.Quote) error

	// LoadSpans and SaveSpans hold the availability ledger for sources that
	// can only be fetched as a whole universe.
	LoadSpans(sourceKey string) ([]model.DateSpan, error)
	SaveSpans(sourceKey string, spans []model.DateSpan) error
}
