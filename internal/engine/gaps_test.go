package engine

import (
	"reflect"
	"testing"

	"quoteflow/internal/model"

	"github.com/shopspring/decimal"
)

func cachedQuote(sym string, d model.Date) model.Quote {
	return model.Quote{Symbol: sym, Date: d, Price: decimal.NewFromInt(1)}
}

func TestPlanSymbolBatchesEmptyCache(t *testing.T) {
	window := model.DateSpan{Start: day(1), End: day(3)}
	batches := planSymbolBatches(nil, []string{"AAA"}, window, 0)

	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if batches[0].span != window {
		t.Errorf("unexpected span: %s", batches[0].span)
	}
	if !reflect.DeepEqual(batches[0].symbols, []string{"AAA"}) {
		t.Errorf("unexpected symbols: %v", batches[0].symbols)
	}
}

func TestPlanSymbolBatchesSkipsCoveredDays(t *testing.T) {
	cached := []model.Quote{
		cachedQuote("AAA", day(2)),
		cachedQuote("AAA", day(3)),
	}
	window := model.DateSpan{Start: day(1), End: day(5)}
	batches := planSymbolBatches(cached, []string{"AAA"}, window, 0)

	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].span != (model.DateSpan{Start: day(1), End: day(1)}) {
		t.Errorf("unexpected first span: %s", batches[0].span)
	}
	if batches[1].span != (model.DateSpan{Start: day(4), End: day(5)}) {
		t.Errorf("unexpected second span: %s", batches[1].span)
	}
}

func TestPlanSymbolBatchesCoalescesIdenticalSpans(t *testing.T) {
	window := model.DateSpan{Start: day(1), End: day(2)}
	batches := planSymbolBatches(nil, []string{"BBB", "AAA"}, window, 0)

	if len(batches) != 1 {
		t.Fatalf("expected a single coalesced batch, got %d", len(batches))
	}
	if !reflect.DeepEqual(batches[0].symbols, []string{"AAA", "BBB"}) {
		t.Errorf("expected sorted symbols, got %v", batches[0].symbols)
	}
}

func TestPlanSymbolBatchesSplitsAtGroupPeriod(t *testing.T) {
	window := model.DateSpan{Start: day(1), End: day(7)}
	batches := planSymbolBatches(nil, []string{"AAA"}, window, 3)

	want := []model.DateSpan{
		{Start: day(1), End: day(3)},
		{Start: day(4), End: day(6)},
		{Start: day(7), End: day(7)},
	}
	if len(batches) != len(want) {
		t.Fatalf("expected %d batches, got %d", len(want), len(batches))
	}
	for i, span := range want {
		if batches[i].span != span {
			t.Errorf("batch %d: expected %s, got %s", i, span, batches[i].span)
		}
	}
}

func TestPlanSymbolBatchesNoSymbols(t *testing.T) {
	window := model.DateSpan{Start: day(1), End: day(3)}
	if batches := planSymbolBatches(nil, nil, window, 0); batches != nil {
		t.Fatalf("expected no batches, got %v", batches)
	}
}

func TestPlanUniverseSpans(t *testing.T) {
	covered := []model.DateSpan{{Start: day(3), End: day(4)}}
	window := model.DateSpan{Start: day(1), End: day(6)}

	spans := planUniverseSpans(covered, window, 0)
	want := []model.DateSpan{
		{Start: day(1), End: day(2)},
		{Start: day(5), End: day(6)},
	}
	if !reflect.DeepEqual(spans, want) {
		t.Fatalf("expected %v, got %v", want, spans)
	}
}

func TestPlanUniverseSpansFullyCovered(t *testing.T) {
	covered := []model.DateSpan{{Start: day(1), End: day(10)}}
	window := model.DateSpan{Start: day(2), End: day(8)}

	if spans := planUniverseSpans(covered, window, 0); len(spans) != 0 {
		t.Fatalf("expected no spans, got %v", spans)
	}
}

func TestSplitSpan(t *testing.T) {
	s := model.DateSpan{Start: day(1), End: day(5)}

	if got := splitSpan(s, 0); !reflect.DeepEqual(got, []model.DateSpan{s}) {
		t.Errorf("expected unbounded split to keep the span whole, got %v", got)
	}
	if got := splitSpan(s, 10); !reflect.DeepEqual(got, []model.DateSpan{s}) {
		t.Errorf("expected no split below the cap, got %v", got)
	}

	got := splitSpan(s, 2)
	want := []model.DateSpan{
		{Start: day(1), End: day(2)},
		{Start: day(3), End: day(4)},
		{Start: day(5), End: day(5)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
