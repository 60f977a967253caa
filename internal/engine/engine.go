// Package engine implements the incremental synchronization core: it
// reconciles requested tickers and quote windows against persisted
// snapshots, fetches only the missing coverage from each source adapter,
// merges the results back and serves queries from the merged cache.
package engine

import (
	"time"

	"quoteflow/internal/model"
	"quoteflow/internal/source"
	"quoteflow/internal/store"
	"quoteflow/logger"
)

// Engine is the query facade. Sources are processed sequentially; the
// engine assumes it is the only writer of its snapshot store (concurrent
// processes sharing one store lose updates, last writer wins).
type Engine struct {
	registry *source.Registry
	store    store.Store
	log      *logger.Log
	now      func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock, which pins "today" and the settlement
// window in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger replaces the package-global logger.
func WithLogger(log *logger.Log) Option {
	return func(e *Engine) { e.log = log }
}

func New(registry *source.Registry, st store.Store, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		store:    st,
		log:      logger.GetLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetSources returns descriptive metadata for the selected sources, all of
// them when keys is empty.
func (e *Engine) GetSources(keys []string) []model.SourceInfo {
	selected := e.registry.Select(keys)
	out := make([]model.SourceInfo, 0, len(selected))
	for _, src := range selected {
		out = append(out, src.Info())
	}
	return out
}
