package model

import "time"

// Strategy is a set of capability tags describing how a source can be queried.
type Strategy uint8

const (
	// StrategyAllTickers marks a source that can only be queried for the
	// whole instrument universe at once; per-symbol filters are ignored.
	StrategyAllTickers Strategy = 1 << iota
)

// StrategyDefault means the source accepts an explicit symbol list.
const StrategyDefault Strategy = 0

// Has reports whether the tag set contains all tags in s.
func (st Strategy) Has(s Strategy) bool {
	return st&s == s
}

// SourceInfo is descriptive metadata about a source. Version is reserved
// for schema migration and is not interpreted anywhere yet.
type SourceInfo struct {
	Name        string
	Description string
	Key         string
	Version     int
}

// SourceConfig tunes how the sync engine talks to a source.
type SourceConfig struct {
	// TickerRefreshInterval is the minimum age of the cached catalog before
	// it is fetched again. Nil means the catalog is fetched once and never
	// refreshed automatically.
	TickerRefreshInterval *time.Duration

	// DataRefreshInterval is the trailing settlement window: data newer than
	// now minus this interval may not be final at the source yet.
	DataRefreshInterval time.Duration

	// DataGroupPeriod caps the span of a single fetch batch. Nil means one
	// batch per contiguous gap, however long.
	DataGroupPeriod *time.Duration

	Strategy Strategy
}

// GroupDays converts DataGroupPeriod to whole days. Zero means unbounded.
func (c SourceConfig) GroupDays() int {
	if c.DataGroupPeriod == nil {
		return 0
	}
	days := int(*c.DataGroupPeriod / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	return days
}

// RefreshDays converts DataRefreshInterval to whole days, rounding down.
func (c SourceConfig) RefreshDays() int {
	return int(c.DataRefreshInterval / (24 * time.Hour))
}
