package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"quoteflow/internal/model"
)

// Local stores snapshots as Parquet files under a single data directory:
// tickers.parquet, quotes_<source>.parquet and spans_<source>.parquet.
// Writes go to a uniquely named temp file first and are renamed into place,
// so a crashed save never leaves a truncated snapshot behind.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty data directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) read(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	return data, nil
}

func (l *Local) replace(name string, data []byte) error {
	tmp := filepath.Join(l.dir, fmt.Sprintf(".%s.%s.tmp", name, uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", name, err)
	}
	if err := os.Rename(tmp, filepath.Join(l.dir, name)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace snapshot %s: %w", name, err)
	}
	return nil
}

func (l *Local) LoadTickers() ([]model.Ticker, error) {
	data, err := l.read("tickers.parquet")
	if err != nil {
		return nil, err
	}
	return decodeTickers(data)
}

func (l *Local) SaveTickers(tickers []model.Ticker) error {
	data, err := encodeTickers(tickers)
	if err != nil {
		return err
	}
	return l.replace("tickers.parquet", data)
}

func (l *Local) LoadQuotes(sourceKey string) ([]model.Quote, error) {
	data, err := l.read(quotesName(sourceKey))
	if err != nil {
		return nil, err
	}
	return decodeQuotes(data)
}

func (l *Local) SaveQuotes(sourceKey string, quotes []model.Quote) error {
	data, err := encodeQuotes(quotes)
	if err != nil {
		return err
	}
	return l.replace(quotesName(sourceKey), data)
}

func (l *Local) LoadSpans(sourceKey string) ([]model.DateSpan, error) {
	data, err := l.read(spansName(sourceKey))
	if err != nil {
		return nil, err
	}
	return decodeSpans(data)
}

func (l *Local) SaveSpans(sourceKey string, spans []model.DateSpan) error {
	data, err := encodeSpans(sourceKey, spans)
	if err != nil {
		return err
	}
	return l.replace(spansName(sourceKey), data)
}

func quotesName(sourceKey string) string {
	return fmt.Sprintf("quotes_%s.parquet", sourceKey)
}

func spansName(sourceKey string) string {
	return fmt.Sprintf("spans_%s.parquet", sourceKey)
}
