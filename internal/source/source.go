package source

import (
	"context"

	"quoteflow/internal/model"
)

// Source is the capability contract every pluggable data provider implements.
// Implementations own their transport, authentication and rate limiting; the
// sync engine only sees the methods below.
type Source interface {
	// Key returns the stable identifier used to partition cached data.
	Key() string

	Info() model.SourceInfo

	Config() model.SourceConfig

	// Tickers fetches the source's current instrument catalog.
	Tickers(ctx context.Context) ([]model.Ticker, error)

	// Quotes fetches price rows for the given symbols and inclusive date
	// window. Sources with the AllTickers strategy ignore symbols entirely.
	// When both dates are nil the source returns its latest data points.
	Quotes(ctx context.Context, symbols []string, start, end *model.Date) ([]model.Quote, error)
}
