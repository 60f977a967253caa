package store

import "quoteflow/internal/model"

// Memory is an in-process Store. Snapshots still pass through the Parquet
// codec so it exercises the same encoding path as the file-backed stores.
type Memory struct {
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) get(name string) ([]byte, error) {
	data, ok := m.objects[name]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *Memory) LoadTickers() ([]model.Ticker, error) {
	data, err := m.get("tickers.parquet")
	if err != nil {
		return nil, err
	}
	return decodeTickers(data)
}

func (m *Memory) SaveTickers(tickers []model.Ticker) error {
	data, err := encodeTickers(tickers)
	if err != nil {
		return err
	}
	m.objects["tickers.parquet"] = data
	return nil
}

func (m *Memory) LoadQuotes(sourceKey string) ([]model.Quote, error) {
	data, err := m.get(quotesName(sourceKey))
	if err != nil {
		return nil, err
	}
	return decodeQuotes(data)
}

func (m *Memory) SaveQuotes(sourceKey string, quotes []model.Quote) error {
	data, err := encodeQuotes(quotes)
	if err != nil {
		return err
	}
	m.objects[quotesName(sourceKey)] = data
	return nil
}

func (m *Memory) LoadSpans(sourceKey string) ([]model.DateSpan, error) {
	data, err := m.get(spansName(sourceKey))
	if err != nil {
		return nil, err
	}
	return decodeSpans(data)
}

func (m *Memory) SaveSpans(sourceKey string, spans []model.DateSpan) error {
	data, err := encodeSpans(sourceKey, spans)
	if err != nil {
		return err
	}
	m.objects[spansName(sourceKey)] = data
	return nil
}
