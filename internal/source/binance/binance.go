// Package binance implements a quote source for Binance spot markets. It
// serves daily closing prices from the public klines endpoint; the ticker
// universe is the configured symbol list enriched from exchange metadata.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"quoteflow/internal/model"
	"quoteflow/logger"

	binance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

const dailyInterval = "1d"

// The klines endpoint returns at most 1000 rows per request, so fetch
// windows are capped well below that.
const maxBatchDays = 500

// Options configures the Binance source. Symbols is required; the exchange
// lists thousands of pairs and syncing all of them is never intended.
type Options struct {
	Symbols []string
	Timeout time.Duration
	BaseURL string
}

type Source struct {
	symbols []string
	client  *binance.Client
	log     *logger.Log
}

func New(opts Options) *Source {
	client := binance.NewClient("", "")
	if opts.BaseURL != "" {
		client.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		client.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	symbols := make([]string, 0, len(opts.Symbols))
	for _, s := range opts.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			symbols = append(symbols, s)
		}
	}

	return &Source{
		symbols: symbols,
		client:  client,
		log:     logger.GetLogger(),
	}
}

func (s *Source) Key() string { return "binance" }

func (s *Source) Info() model.SourceInfo {
	return model.SourceInfo{
		Name:        "Binance Spot",
		Description: "Daily closing prices for configured Binance spot pairs.",
		Key:         s.Key(),
		Version:     1,
	}
}

func (s *Source) Config() model.SourceConfig {
	tickerRefresh := 7 * 24 * time.Hour
	groupPeriod := maxBatchDays * 24 * time.Hour
	return model.SourceConfig{
		TickerRefreshInterval: &tickerRefresh,
		DataRefreshInterval:   24 * time.Hour,
		DataGroupPeriod:       &groupPeriod,
		Strategy:              model.StrategyDefault,
	}
}

// Tickers resolves the configured symbols against exchange metadata so the
// catalog carries readable pair names. Configured symbols the exchange does
// not know are logged and skipped.
func (s *Source) Tickers(ctx context.Context) ([]model.Ticker, error) {
	info, err := s.client.NewExchangeInfoService().Symbols(s.symbols...).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch exchange info: %w", err)
	}

	known := make(map[string]binance.Symbol, len(info.Symbols))
	for _, sym := range info.Symbols {
		known[sym.Symbol] = sym
	}

	log := s.log.WithComponent("binance_source")
	tickers := make([]model.Ticker, 0, len(s.symbols))
	for _, symbol := range s.symbols {
		meta, ok := known[symbol]
		if !ok {
			log.WithFields(logger.Fields{"symbol": symbol}).Warn("configured symbol not listed on exchange, skipping")
			continue
		}
		tickers = append(tickers, model.Ticker{
			Symbol:    symbol,
			Name:      fmt.Sprintf("%s/%s", meta.BaseAsset, meta.QuoteAsset),
			SourceKey: s.Key(),
		})
	}
	return tickers, nil
}

// Quotes fetches daily closes for the requested symbols over the inclusive
// window. Each symbol costs one klines request.
func (s *Source) Quotes(ctx context.Context, symbols []string, start, end *model.Date) ([]model.Quote, error) {
	var quotes []model.Quote
	for _, symbol := range symbols {
		svc := s.client.NewKlinesService().
			Symbol(symbol).
			Interval(dailyInterval).
			Limit(1000)
		if start != nil {
			svc.StartTime(start.Time().UnixMilli())
		}
		if end != nil {
			// Inclusive end: the last daily candle opens at midnight of the
			// end date and closes a millisecond before the next one.
			svc.EndTime(end.AddDays(1).Time().UnixMilli() - 1)
		}

		klines, err := svc.Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch klines for %s: %w", symbol, err)
		}

		for _, k := range klines {
			price, err := decimal.NewFromString(k.Close)
			if err != nil {
				return nil, fmt.Errorf("parse close price %q for %s: %w", k.Close, symbol, err)
			}
			quotes = append(quotes, model.Quote{
				SourceKey: s.Key(),
				Symbol:    symbol,
				Date:      model.DateOf(time.UnixMilli(k.OpenTime)),
				Price:     price,
			})
		}
	}
	return quotes, nil
}
