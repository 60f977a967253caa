package model

import "time"

// Ticker is one catalog entry. Identity is (SourceKey, Symbol); a re-fetch
// replaces the whole row, rows are never deleted implicitly.
type Ticker struct {
	Symbol      string
	Name        string
	ISIN        *string
	SourceKey   string
	LastUpdated time.Time
}

// TickerKey is the catalog identity key.
type TickerKey struct {
	SourceKey string
	Symbol    string
}

func (t Ticker) Key() TickerKey {
	return TickerKey{SourceKey: t.SourceKey, Symbol: t.Symbol}
}
