package engine

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quoteflow/internal/model"
)

// Format selects the output representation of a query result.
type Format string

const (
	// FormatColumns is a column-name to value-list mapping.
	FormatColumns Format = "columns"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
)

// ErrUnsupportedFormat is returned for formats none of the tables implement.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// TickerTable is a catalog query result.
// Columns: symbol, name, isin, source_key, last_updated.
type TickerTable struct {
	rows []model.Ticker
}

func NewTickerTable(rows []model.Ticker) *TickerTable {
	return &TickerTable{rows: rows}
}

func (t *TickerTable) Rows() []model.Ticker { return t.rows }

func (t *TickerTable) Len() int { return len(t.rows) }

// Columns returns the table as a column-name to value-list mapping.
// Null ISINs stay nil.
func (t *TickerTable) Columns() map[string][]any {
	symbols := make([]any, 0, len(t.rows))
	names := make([]any, 0, len(t.rows))
	isins := make([]any, 0, len(t.rows))
	sourceKeys := make([]any, 0, len(t.rows))
	lastUpdated := make([]any, 0, len(t.rows))
	for _, r := range t.rows {
		symbols = append(symbols, r.Symbol)
		names = append(names, r.Name)
		if r.ISIN != nil {
			isins = append(isins, *r.ISIN)
		} else {
			isins = append(isins, nil)
		}
		sourceKeys = append(sourceKeys, r.SourceKey)
		lastUpdated = append(lastUpdated, r.LastUpdated)
	}
	return map[string][]any{
		"symbol":       symbols,
		"name":         names,
		"isin":         isins,
		"source_key":   sourceKeys,
		"last_updated": lastUpdated,
	}
}

type tickerJSON struct {
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	ISIN        *string   `json:"isin"`
	SourceKey   string    `json:"source_key"`
	LastUpdated time.Time `json:"last_updated"`
}

func (t *TickerTable) JSON() (string, error) {
	out := make([]tickerJSON, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, tickerJSON{
			Symbol:      r.Symbol,
			Name:        r.Name,
			ISIN:        r.ISIN,
			SourceKey:   r.SourceKey,
			LastUpdated: r.LastUpdated,
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal tickers: %w", err)
	}
	return string(data), nil
}

func (t *TickerTable) CSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"symbol", "name", "isin", "source_key", "last_updated"}); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range t.rows {
		isin := ""
		if r.ISIN != nil {
			isin = *r.ISIN
		}
		record := []string{r.Symbol, r.Name, isin, r.SourceKey, r.LastUpdated.UTC().Format(time.RFC3339)}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}

// Output converts the table to the requested representation.
func (t *TickerTable) Output(f Format) (any, error) {
	switch f {
	case FormatColumns:
		return t.Columns(), nil
	case FormatJSON:
		return t.JSON()
	case FormatCSV:
		return t.CSV()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// QuoteTable is a quote query result.
// Columns: symbol, date, price, source_key.
type QuoteTable struct {
	rows []model.Quote
}

func NewQuoteTable(rows []model.Quote) *QuoteTable {
	return &QuoteTable{rows: rows}
}

func (t *QuoteTable) Rows() []model.Quote { return t.rows }

func (t *QuoteTable) Len() int { return len(t.rows) }

func (t *QuoteTable) Columns() map[string][]any {
	symbols := make([]any, 0, len(t.rows))
	dates := make([]any, 0, len(t.rows))
	prices := make([]any, 0, len(t.rows))
	sourceKeys := make([]any, 0, len(t.rows))
	for _, r := range t.rows {
		symbols = append(symbols, r.Symbol)
		dates = append(dates, r.Date)
		prices = append(prices, r.Price)
		sourceKeys = append(sourceKeys, r.SourceKey)
	}
	return map[string][]any{
		"symbol":     symbols,
		"date":       dates,
		"price":      prices,
		"source_key": sourceKeys,
	}
}

type quoteJSON struct {
	Symbol    string `json:"symbol"`
	Date      string `json:"date"`
	Price     string `json:"price"`
	SourceKey string `json:"source_key"`
}

func (t *QuoteTable) JSON() (string, error) {
	out := make([]quoteJSON, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, quoteJSON{
			Symbol:    r.Symbol,
			Date:      r.Date.String(),
			Price:     r.Price.StringFixed(model.PriceScale),
			SourceKey: r.SourceKey,
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal quotes: %w", err)
	}
	return string(data), nil
}

func (t *QuoteTable) CSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"symbol", "date", "price", "source_key"}); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range t.rows {
		record := []string{r.Symbol, r.Date.String(), r.Price.StringFixed(model.PriceScale), r.SourceKey}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}

func (t *QuoteTable) Output(f Format) (any, error) {
	switch f {
	case FormatColumns:
		return t.Columns(), nil
	case FormatJSON:
		return t.JSON()
	case FormatCSV:
		return t.CSV()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}
