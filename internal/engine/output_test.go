package engine

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"quoteflow/internal/model"

	"github.com/shopspring/decimal"
)

func sampleQuoteTable() *QuoteTable {
	price, _ := decimal.NewFromString("359.1246")
	return NewQuoteTable([]model.Quote{
		{SourceKey: "amfi", Symbol: "119551", Date: model.NewDate(2026, 8, 27), Price: price},
		{SourceKey: "amfi", Symbol: "119552", Date: model.NewDate(2026, 8, 27), Price: decimal.NewFromInt(42)},
	})
}

func TestQuoteTableCSV(t *testing.T) {
	out, err := sampleQuoteTable().CSV()
	if err != nil {
		t.Fatalf("CSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "symbol,date,price,source_key" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if lines[1] != "119551,2026-08-27,359.1246,amfi" {
		t.Errorf("unexpected row: %s", lines[1])
	}
	// Prices are always printed at full scale.
	if lines[2] != "119552,2026-08-27,42.0000,amfi" {
		t.Errorf("unexpected row: %s", lines[2])
	}
}

func TestQuoteTableJSON(t *testing.T) {
	out, err := sampleQuoteTable().JSON()
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}

	var rows []map[string]string
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["symbol"] != "119551" || rows[0]["price"] != "359.1246" {
		t.Errorf("unexpected row: %v", rows[0])
	}
}

func TestQuoteTableColumns(t *testing.T) {
	cols := sampleQuoteTable().Columns()
	if len(cols["symbol"]) != 2 || len(cols["price"]) != 2 {
		t.Fatalf("unexpected column lengths: %v", cols)
	}
	if cols["symbol"][0] != "119551" {
		t.Errorf("unexpected symbol column: %v", cols["symbol"])
	}
}

func TestTickerTableCSVNullISIN(t *testing.T) {
	isin := "INF209K01YM2"
	stamp := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	table := NewTickerTable([]model.Ticker{
		{Symbol: "119551", Name: "Some Fund", ISIN: &isin, SourceKey: "amfi", LastUpdated: stamp},
		{Symbol: "119552", Name: "Other Fund", SourceKey: "amfi", LastUpdated: stamp},
	})

	out, err := table.CSV()
	if err != nil {
		t.Fatalf("CSV failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[1] != "119551,Some Fund,INF209K01YM2,amfi,2026-08-27T10:00:00Z" {
		t.Errorf("unexpected row: %s", lines[1])
	}
	if lines[2] != "119552,Other Fund,,amfi,2026-08-27T10:00:00Z" {
		t.Errorf("expected empty ISIN cell, got: %s", lines[2])
	}

	// In the column representation a null ISIN stays nil.
	cols := table.Columns()
	if cols["isin"][1] != nil {
		t.Errorf("expected nil ISIN, got %v", cols["isin"][1])
	}
}

func TestOutputUnsupportedFormat(t *testing.T) {
	if _, err := sampleQuoteTable().Output(Format("parquet")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := sampleQuoteTable().Output(FormatJSON); err != nil {
		t.Fatalf("Output failed: %v", err)
	}
}
