package engine

import (
	"testing"
	"time"

	"quoteflow/internal/model"

	"github.com/shopspring/decimal"
)

func TestUpsertTickers(t *testing.T) {
	stamp := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	cached := []model.Ticker{
		{Symbol: "AAA", Name: "Old Alpha", SourceKey: "alpha"},
		{Symbol: "BBB", Name: "Beta", SourceKey: "alpha"},
	}
	fresh := []model.Ticker{
		{Symbol: "AAA", Name: "New Alpha", SourceKey: "alpha", LastUpdated: stamp},
		{Symbol: "CCC", Name: "Gamma", SourceKey: "alpha", LastUpdated: stamp},
	}

	out := upsertTickers(cached, fresh)
	if len(out) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(out))
	}
	// The refreshed row replaces the cached one in place.
	if out[0].Name != "New Alpha" {
		t.Errorf("expected fresh row to win, got %q", out[0].Name)
	}
	if out[1].Name != "Beta" {
		t.Errorf("expected untouched cached row, got %q", out[1].Name)
	}
	if out[2].Symbol != "CCC" {
		t.Errorf("expected new row appended, got %q", out[2].Symbol)
	}
}

func TestUpsertTickersDistinctSources(t *testing.T) {
	cached := []model.Ticker{{Symbol: "AAA", Name: "Alpha", SourceKey: "one"}}
	fresh := []model.Ticker{{Symbol: "AAA", Name: "Other Alpha", SourceKey: "two"}}

	out := upsertTickers(cached, fresh)
	// Same symbol under different sources are different instruments.
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
}

func TestUpsertQuotes(t *testing.T) {
	cached := []model.Quote{
		{Symbol: "AAA", Date: day(1), Price: decimal.NewFromInt(1)},
		{Symbol: "AAA", Date: day(2), Price: decimal.NewFromInt(2)},
	}
	fresh := []model.Quote{
		{Symbol: "AAA", Date: day(2), Price: decimal.NewFromInt(20)},
		{Symbol: "BBB", Date: day(1), Price: decimal.NewFromInt(5)},
	}

	out := upsertQuotes(cached, fresh)
	if len(out) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(out))
	}
	// Sorted by date then symbol.
	if out[0].Symbol != "AAA" || out[1].Symbol != "BBB" || out[2].Symbol != "AAA" {
		t.Fatalf("unexpected order: %v", out)
	}
	if got := out[2].Price.String(); got != "20" {
		t.Errorf("expected fresh price to win, got %s", got)
	}
}

func TestUpsertQuotesEmptyFresh(t *testing.T) {
	cached := []model.Quote{
		{Symbol: "AAA", Date: day(2), Price: decimal.NewFromInt(2)},
		{Symbol: "AAA", Date: day(1), Price: decimal.NewFromInt(1)},
	}

	out := upsertQuotes(cached, nil)
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
	if out[0].Date != day(1) {
		t.Errorf("expected rows re-sorted by date, got %s first", out[0].Date)
	}
}
