// Package amfi implements a quote source backed by the Association of
// Mutual Funds in India. AMFI publishes net asset values for every Indian
// mutual fund scheme as semicolon separated text files, one endpoint for
// the latest values and one for historical ranges.
package amfi

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quoteflow/internal/model"
	"quoteflow/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	defaultLatestURL  = "https://www.amfiindia.com/spages/NAVAll.txt"
	defaultHistoryURL = "https://portal.amfiindia.com/DownloadNAVHistoryReport_Po.aspx"

	// AMFI encodes dates like 27-Aug-2026 in both the feed body and the
	// history endpoint's query parameters.
	amfiDateLayout = "02-Jan-2006"
)

// Options configures the AMFI source. Zero values fall back to the public
// endpoints and a conservative one request per second limit.
type Options struct {
	LatestURL         string
	HistoryURL        string
	Timeout           time.Duration
	RequestsPerSecond float64
	BurstSize         int
}

// Source fetches tickers and quotes from the AMFI feeds. It only supports
// whole-universe queries; the feed has no per-scheme endpoint.
type Source struct {
	latestURL  string
	historyURL string
	client     *http.Client
	limiter    *rate.Limiter
	log        *logger.Log
}

func New(opts Options) *Source {
	if opts.LatestURL == "" {
		opts.LatestURL = defaultLatestURL
	}
	if opts.HistoryURL == "" {
		opts.HistoryURL = defaultHistoryURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := opts.BurstSize
	if burst <= 0 {
		burst = 1
	}

	return &Source{
		latestURL:  opts.LatestURL,
		historyURL: opts.HistoryURL,
		client:     &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		log:        logger.GetLogger(),
	}
}

func (s *Source) Key() string { return "amfi" }

func (s *Source) Info() model.SourceInfo {
	return model.SourceInfo{
		Name:        "Mutual Fund India",
		Description: "Net asset values for all Indian mutual funds, sourced from AMFI.",
		Key:         s.Key(),
		Version:     1,
	}
}

func (s *Source) Config() model.SourceConfig {
	tickerRefresh := 7 * 24 * time.Hour
	groupPeriod := 30 * 24 * time.Hour
	return model.SourceConfig{
		TickerRefreshInterval: &tickerRefresh,
		DataRefreshInterval:   24 * time.Hour,
		DataGroupPeriod:       &groupPeriod,
		Strategy:              model.StrategyAllTickers,
	}
}

// Tickers downloads the latest NAV feed and returns one ticker per scheme.
func (s *Source) Tickers(ctx context.Context) ([]model.Ticker, error) {
	body, err := s.download(ctx, s.latestURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	rows, err := parseFeed(body)
	if err != nil {
		return nil, fmt.Errorf("parse amfi feed: %w", err)
	}

	tickers := make([]model.Ticker, 0, len(rows))
	for _, row := range rows {
		tickers = append(tickers, model.Ticker{
			Symbol:    row.symbol,
			Name:      row.name,
			ISIN:      row.isin,
			SourceKey: s.Key(),
		})
	}
	return tickers, nil
}

// Quotes returns NAVs for every scheme in the requested window. The symbol
// list is ignored; the feed cannot be filtered. With no window at all, the
// latest published values are returned.
func (s *Source) Quotes(ctx context.Context, _ []string, start, end *model.Date) ([]model.Quote, error) {
	body, err := s.download(ctx, s.quotesURL(start, end))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	rows, err := parseFeed(body)
	if err != nil {
		return nil, fmt.Errorf("parse amfi feed: %w", err)
	}

	log := s.log.WithComponent("amfi_source")
	quotes := make([]model.Quote, 0, len(rows))
	for _, row := range rows {
		if row.price == nil {
			continue
		}
		price, err := decimal.NewFromString(*row.price)
		if err != nil {
			log.WithFields(logger.Fields{
				"symbol": row.symbol,
				"value":  *row.price,
			}).Warn("skipping scheme with unparseable net asset value")
			continue
		}
		quotes = append(quotes, model.Quote{
			SourceKey: s.Key(),
			Symbol:    row.symbol,
			Date:      row.date,
			Price:     price,
		})
	}
	return quotes, nil
}

// quotesURL picks the endpoint for the requested window. A single known
// bound queries just that day; the history endpoint requires both ends.
func (s *Source) quotesURL(start, end *model.Date) string {
	if start == nil && end == nil {
		return s.latestURL
	}
	frm, to := start, end
	if frm == nil {
		frm = to
	}
	if to == nil {
		to = frm
	}

	q := url.Values{}
	q.Set("frmdt", frm.Time().Format(amfiDateLayout))
	q.Set("todt", to.Time().Format(amfiDateLayout))
	return s.historyURL + "?" + q.Encode()
}

func (s *Source) download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build amfi request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch amfi feed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("amfi feed returned status %d", resp.StatusCode)
	}
	// The portal answers errors with an HTML page and a 200 status, so the
	// content type is the only reliable failure signal.
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		resp.Body.Close()
		return nil, fmt.Errorf("amfi feed returned unexpected content type %q", ct)
	}
	return resp.Body, nil
}

// feedRow is one scheme line from a NAV feed. price stays textual until the
// caller decides whether it needs it.
type feedRow struct {
	symbol string
	name   string
	isin   *string
	date   model.Date
	price  *string
}

// parseFeed reads an AMFI NAV file. The files interleave the data rows with
// fund house and scheme type section headings plus blank lines; only lines
// with the full column count are data. Rows without a date are headings
// repeated mid-file and are dropped, as are rows with the literal null
// markers AMFI uses.
func parseFeed(r io.Reader) ([]feedRow, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var header []string
	var cols feedColumns
	var rows []feedRow
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !strings.Contains(line, ";") {
			continue
		}

		fields := strings.Split(line, ";")
		if header == nil {
			header = fields
			var err error
			cols, err = mapColumns(header)
			if err != nil {
				return nil, err
			}
			continue
		}
		if len(fields) != len(header) {
			continue
		}

		date, ok := fieldDate(fields, cols.date)
		if !ok {
			continue
		}
		rows = append(rows, feedRow{
			symbol: strings.TrimSpace(fields[cols.symbol]),
			name:   fieldString(fields, cols.name),
			isin:   firstISIN(fields, cols.isin),
			date:   date,
			price:  fieldValue(fields, cols.price),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if header == nil {
		return nil, fmt.Errorf("feed contains no header line")
	}
	return rows, nil
}

// feedColumns indexes the columns of interest. The latest and historical
// feeds order their columns differently, so positions come from the header.
type feedColumns struct {
	symbol int
	name   int
	price  int
	date   int
	isin   []int
}

func mapColumns(header []string) (feedColumns, error) {
	cols := feedColumns{symbol: -1, name: -1, price: -1, date: -1}
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		switch name {
		case "Scheme Code":
			cols.symbol = i
		case "Scheme Name":
			cols.name = i
		case "Net Asset Value":
			cols.price = i
		case "Date":
			cols.date = i
		default:
			if strings.HasPrefix(name, "ISIN") {
				cols.isin = append(cols.isin, i)
			}
		}
	}
	if cols.symbol < 0 || cols.name < 0 || cols.price < 0 || cols.date < 0 {
		return cols, fmt.Errorf("feed header is missing required columns: %s", strings.Join(header, ";"))
	}
	return cols, nil
}

func fieldValue(fields []string, i int) *string {
	v := strings.TrimSpace(fields[i])
	// AMFI writes nulls as N.A. or a bare dash.
	if v == "" || v == "N.A." || v == "-" {
		return nil
	}
	return &v
}

func fieldString(fields []string, i int) string {
	if v := fieldValue(fields, i); v != nil {
		return *v
	}
	return ""
}

func fieldDate(fields []string, i int) (model.Date, bool) {
	v := fieldValue(fields, i)
	if v == nil {
		return 0, false
	}
	t, err := time.Parse(amfiDateLayout, *v)
	if err != nil {
		return 0, false
	}
	return model.DateOf(t), true
}

func firstISIN(fields []string, indexes []int) *string {
	for _, i := range indexes {
		if v := fieldValue(fields, i); v != nil {
			return v
		}
	}
	return nil
}
