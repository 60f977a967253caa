package model

import "github.com/shopspring/decimal"

// Quote is one price observation for an instrument on a trading day.
// Identity is (SourceKey, Symbol, Date); a newer fetch wins on conflict.
// Prices carry four fractional digits.
type Quote struct {
	SourceKey string
	Symbol    string
	Date      Date
	Price     decimal.Decimal
}

// QuoteKey is the quote identity key within a single source partition.
type QuoteKey struct {
	Symbol string
	Date   Date
}

func (q Quote) Key() QuoteKey {
	return QuoteKey{Symbol: q.Symbol, Date: q.Date}
}

// PriceScale is the fixed number of fractional digits kept for prices.
const PriceScale = 4
