package data

import (
	"log"
	"sort"
	"time"

	"github.com/quantlab/algotrader-kr/pkg/types"
)

// Loader assembles the per-code history map a simulation runs on.
type Loader struct {
	provider Provider
	filter   *DefaultFilter
	minBars  int
}

// NewLoader creates a loader. Instruments with fewer than minBars bars are
// dropped with a warning instead of failing the whole run.
func NewLoader(provider Provider, minBars int) *Loader {
	return &Loader{
		provider: provider,
		filter:   NewDefaultFilter(),
		minBars:  minBars,
	}
}

// LoadUniverse loads daily history for every requested code, clipped at
// the end date (zero leaves it open; the start side stays unclipped so
// warmup history survives). Codes that fail to load or have too little
// history are skipped with a warning; the returned map only holds usable
// series.
func (l *Loader) LoadUniverse(codes []string, end time.Time) map[string][]types.PriceBar {
	unique := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		unique = append(unique, code)
	}
	sort.Strings(unique)

	universe := make(map[string][]types.PriceBar, len(unique))
	for _, code := range unique {
		bars, err := l.provider.LoadBars(code)
		if err != nil {
			log.Printf("⚠️ %s: load failed, instrument dropped: %v", code, err)
			continue
		}
		if err := l.provider.ValidateBars(bars); err != nil {
			log.Printf("⚠️ %s: validation failed, instrument dropped: %v", code, err)
			continue
		}
		if err := l.filter.ValidateTimeSequence(bars); err != nil {
			log.Printf("⚠️ %s: bad time sequence, instrument dropped: %v", code, err)
			continue
		}
		bars = l.filter.FilterByDateRange(bars, time.Time{}, end)
		if len(bars) < l.minBars {
			log.Printf("⚠️ %s: only %d bars (< %d required), instrument dropped",
				code, len(bars), l.minBars)
			continue
		}
		universe[code] = bars
	}
	return universe
}
