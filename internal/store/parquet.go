package store

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"quoteflow/internal/model"
)

type tickerRecord struct {
	Symbol      string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Name        string  `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	ISIN        *string `parquet:"name=isin, type=BYTE_ARRAY, convertedtype=UTF8"`
	SourceKey   string  `parquet:"name=source_key, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	LastUpdated int64   `parquet:"name=last_updated, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

type quoteRecord struct {
	SourceKey string `parquet:"name=source_key, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Symbol    string `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Date      int32  `parquet:"name=date, type=INT32, convertedtype=DATE"`
	Price     int64  `parquet:"name=price, type=INT64, convertedtype=DECIMAL, scale=4, precision=18"`
}

type spanRecord struct {
	SourceKey string `parquet:"name=source_key, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Start     int32  `parquet:"name=start, type=INT32, convertedtype=DATE"`
	End       int32  `parquet:"name=end, type=INT32, convertedtype=DATE"`
}

// memFile is a write-only in-memory ParquetFile, so snapshots can be encoded
// once and handed to whatever backend stores the bytes.
type memFile struct {
	buf *bytes.Buffer
}

func newMemFile() *memFile { return &memFile{buf: &bytes.Buffer{}} }

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFile) Seek(int64, int) (int64, error)            { return int64(m.buf.Len()), nil }
func (m *memFile) Read([]byte) (int, error)                  { return 0, fmt.Errorf("read not supported") }
func (m *memFile) Write(b []byte) (int, error)               { return m.buf.Write(b) }
func (m *memFile) Close() error                              { return nil }
func (m *memFile) Bytes() []byte                             { return m.buf.Bytes() }

// bytesFile is a read-only ParquetFile over a byte slice. Open hands out an
// independent cursor because the reader opens one handle per column.
type bytesFile struct {
	data []byte
	r    *bytes.Reader
}

func newBytesFile(data []byte) *bytesFile {
	return &bytesFile{data: data, r: bytes.NewReader(data)}
}

func (b *bytesFile) Create(string) (source.ParquetFile, error) {
	return nil, fmt.Errorf("write not supported")
}
func (b *bytesFile) Open(string) (source.ParquetFile, error) { return newBytesFile(b.data), nil }
func (b *bytesFile) Seek(offset int64, whence int) (int64, error) {
	return b.r.Seek(offset, whence)
}
func (b *bytesFile) Read(p []byte) (int, error)  { return b.r.Read(p) }
func (b *bytesFile) Write([]byte) (int, error)   { return 0, fmt.Errorf("write not supported") }
func (b *bytesFile) Close() error                { return nil }
func (b *bytesFile) ReadAt(p []byte, off int64) (int, error) {
	return b.r.ReadAt(p, off)
}

var _ io.ReaderAt = (*bytesFile)(nil)

func encodeRecords[T any](rows []T) ([]byte, error) {
	mf := newMemFile()
	pw, err := writer.NewParquetWriter(mf, new(T), 1)
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			return nil, fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet: %w", err)
	}
	return mf.Bytes(), nil
}

func decodeRecords[T any](data []byte) ([]T, error) {
	bf := newBytesFile(data)
	pr, err := reader.NewParquetReader(bf, new(T), 1)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]T, pr.GetNumRows())
	if len(rows) == 0 {
		return rows, nil
	}
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}
	return rows, nil
}

func encodeTickers(tickers []model.Ticker) ([]byte, error) {
	records := make([]tickerRecord, 0, len(tickers))
	for _, t := range tickers {
		records = append(records, tickerRecord{
			Symbol:      t.Symbol,
			Name:        t.Name,
			ISIN:        t.ISIN,
			SourceKey:   t.SourceKey,
			LastUpdated: t.LastUpdated.UTC().UnixMilli(),
		})
	}
	return encodeRecords(records)
}

func decodeTickers(data []byte) ([]model.Ticker, error) {
	records, err := decodeRecords[tickerRecord](data)
	if err != nil {
		return nil, err
	}
	tickers := make([]model.Ticker, 0, len(records))
	for _, r := range records {
		tickers = append(tickers, model.Ticker{
			Symbol:      r.Symbol,
			Name:        r.Name,
			ISIN:        r.ISIN,
			SourceKey:   r.SourceKey,
			LastUpdated: time.UnixMilli(r.LastUpdated).UTC(),
		})
	}
	return tickers, nil
}

func encodeQuotes(quotes []model.Quote) ([]byte, error) {
	records := make([]quoteRecord, 0, len(quotes))
	for _, q := range quotes {
		records = append(records, quoteRecord{
			SourceKey: q.SourceKey,
			Symbol:    q.Symbol,
			Date:      int32(q.Date),
			Price:     q.Price.Shift(model.PriceScale).Round(0).IntPart(),
		})
	}
	return encodeRecords(records)
}

func decodeQuotes(data []byte) ([]model.Quote, error) {
	records, err := decodeRecords[quoteRecord](data)
	if err != nil {
		return nil, err
	}
	quotes := make([]model.Quote, 0, len(records))
	for _, r := range records {
		quotes = append(quotes, model.Quote{
			SourceKey: r.SourceKey,
			Symbol:    r.Symbol,
			Date:      model.Date(r.Date),
			Price:     decimal.New(r.Price, -model.PriceScale),
		})
	}
	return quotes, nil
}

func encodeSpans(sourceKey string, spans []model.DateSpan) ([]byte, error) {
	records := make([]spanRecord, 0, len(spans))
	for _, s := range spans {
		records = append(records, spanRecord{
			SourceKey: sourceKey,
			Start:     int32(s.Start),
			End:       int32(s.End),
		})
	}
	return encodeRecords(records)
}

func decodeSpans(data []byte) ([]model.DateSpan, error) {
	records, err := decodeRecords[spanRecord](data)
	if err != nil {
		return nil, err
	}
	spans := make([]model.DateSpan, 0, len(records))
	for _, r := range records {
		spans = append(spans, model.DateSpan{Start: model.Date(r.Start), End: model.Date(r.End)})
	}
	return spans, nil
}
