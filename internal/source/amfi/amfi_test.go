package amfi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quoteflow/internal/model"
)

const latestFeed = `Scheme Code;ISIN Div Payout/ ISIN Growth;ISIN Div Reinvestment;Scheme Name;Net Asset Value;Date

Open Ended Schemes ( Debt Scheme - Banking and PSU Fund )

Aditya Birla Sun Life Mutual Fund

119551;INF209K01YM2;INF209K01YN0;Aditya Birla Sun Life Banking & PSU Debt Fund - Direct Growth;359.1246;27-Aug-2026
119552;-;INF209K01YP5;Aditya Birla Sun Life Banking & PSU Debt Fund - Regular IDCW;104.3210;27-Aug-2026
119553;N.A.;-;Aditya Birla Sun Life Legacy Fund;N.A.;27-Aug-2026
`

const historyFeed = `Scheme Code;Scheme Name;ISIN Div Payout/ISIN Growth;ISIN Div Reinvestment;Net Asset Value;Repurchase Price;Sale Price;Date
119551;Aditya Birla Sun Life Banking & PSU Debt Fund - Direct Growth;INF209K01YM2;INF209K01YN0;358.9001;0.00000;0.00000;25-Aug-2026
119551;Aditya Birla Sun Life Banking & PSU Debt Fund - Direct Growth;INF209K01YM2;INF209K01YN0;359.0117;0.00000;0.00000;26-Aug-2026
`

func serveFeed(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		if _, err := w.Write([]byte(body)); err != nil {
			t.Errorf("write feed body: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTickers(t *testing.T) {
	srv := serveFeed(t, "text/plain; charset=utf-8", latestFeed)
	src := New(Options{LatestURL: srv.URL})

	tickers, err := src.Tickers(context.Background())
	if err != nil {
		t.Fatalf("Tickers failed: %v", err)
	}
	if len(tickers) != 3 {
		t.Fatalf("expected 3 tickers, got %d", len(tickers))
	}

	first := tickers[0]
	if first.Symbol != "119551" {
		t.Errorf("unexpected symbol: %s", first.Symbol)
	}
	if first.SourceKey != "amfi" {
		t.Errorf("unexpected source key: %s", first.SourceKey)
	}
	if first.ISIN == nil || *first.ISIN != "INF209K01YM2" {
		t.Errorf("expected first ISIN column to win, got %v", first.ISIN)
	}

	// The payout ISIN is a null marker, so the reinvestment one is used.
	second := tickers[1]
	if second.ISIN == nil || *second.ISIN != "INF209K01YP5" {
		t.Errorf("expected ISIN coalesce to skip null markers, got %v", second.ISIN)
	}

	if tickers[2].ISIN != nil {
		t.Errorf("expected nil ISIN when all columns are null, got %v", *tickers[2].ISIN)
	}
}

func TestQuotesLatest(t *testing.T) {
	srv := serveFeed(t, "text/plain", latestFeed)
	src := New(Options{LatestURL: srv.URL})

	quotes, err := src.Quotes(context.Background(), nil, nil, nil)
	if err != nil {
		t.Fatalf("Quotes failed: %v", err)
	}
	// The scheme without a published value is dropped.
	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(quotes))
	}

	q := quotes[0]
	if q.Symbol != "119551" {
		t.Errorf("unexpected symbol: %s", q.Symbol)
	}
	if got := q.Price.String(); got != "359.1246" {
		t.Errorf("unexpected price: %s", got)
	}
	if q.Date != model.NewDate(2026, 8, 27) {
		t.Errorf("unexpected date: %s", q.Date)
	}
}

func TestQuotesHistoricalWindow(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte(historyFeed)); err != nil {
			t.Errorf("write feed body: %v", err)
		}
	}))
	defer srv.Close()

	src := New(Options{HistoryURL: srv.URL})
	start := model.NewDate(2026, 8, 25)
	end := model.NewDate(2026, 8, 26)

	quotes, err := src.Quotes(context.Background(), nil, &start, &end)
	if err != nil {
		t.Fatalf("Quotes failed: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(quotes))
	}
	if quotes[0].Date != start || quotes[1].Date != end {
		t.Errorf("unexpected dates: %s, %s", quotes[0].Date, quotes[1].Date)
	}

	if !strings.Contains(gotQuery, "frmdt=25-Aug-2026") || !strings.Contains(gotQuery, "todt=26-Aug-2026") {
		t.Errorf("unexpected history query: %s", gotQuery)
	}
}

func TestQuotesSingleBoundQueriesOneDay(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(historyFeed))
	}))
	defer srv.Close()

	src := New(Options{HistoryURL: srv.URL})
	start := model.NewDate(2026, 8, 25)

	if _, err := src.Quotes(context.Background(), nil, &start, nil); err != nil {
		t.Fatalf("Quotes failed: %v", err)
	}
	if !strings.Contains(gotQuery, "frmdt=25-Aug-2026") || !strings.Contains(gotQuery, "todt=25-Aug-2026") {
		t.Errorf("unexpected history query: %s", gotQuery)
	}
}

func TestDownloadRejectsHTML(t *testing.T) {
	srv := serveFeed(t, "text/html", "<html>server busy</html>")
	src := New(Options{LatestURL: srv.URL})

	if _, err := src.Tickers(context.Background()); err == nil {
		t.Fatal("expected error for non text/plain response")
	}
}

func TestParseFeedMissingHeader(t *testing.T) {
	if _, err := parseFeed(strings.NewReader("no delimiters here\n")); err == nil {
		t.Fatal("expected error for feed without header")
	}
}

func TestSourceConfig(t *testing.T) {
	src := New(Options{})
	cfg := src.Config()

	if !cfg.Strategy.Has(model.StrategyAllTickers) {
		t.Error("expected all-tickers strategy")
	}
	if cfg.GroupDays() != 30 {
		t.Errorf("unexpected group period: %d days", cfg.GroupDays())
	}
	if cfg.TickerRefreshInterval == nil {
		t.Error("expected a ticker refresh interval")
	}
}
