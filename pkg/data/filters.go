package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/quantlab/algotrader-kr/pkg/types"
)

// DefaultFilter implements Filter for common bar transformations
type DefaultFilter struct{}

// NewDefaultFilter creates a new default filter
func NewDefaultFilter() *DefaultFilter {
	return &DefaultFilter{}
}

// FilterByDateRange keeps bars with start <= date <= end. A zero start or
// end leaves that side unbounded.
func (f *DefaultFilter) FilterByDateRange(bars []types.PriceBar, start, end time.Time) []types.PriceBar {
	if len(bars) == 0 {
		return bars
	}

	lo := 0
	if !start.IsZero() {
		lo = sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(start) })
	}
	hi := len(bars)
	if !end.IsZero() {
		hi = sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(end) })
	}
	if lo >= hi {
		return nil
	}
	return bars[lo:hi]
}

// ValidateTimeSequence ensures bars are in strictly increasing date order
func (f *DefaultFilter) ValidateTimeSequence(bars []types.PriceBar) error {
	for i := 1; i < len(bars); i++ {
		if bars[i].Date.Before(bars[i-1].Date) {
			return fmt.Errorf("bars not in chronological order at index %d: %s comes after %s",
				i, bars[i].Date.Format("2006-01-02"), bars[i-1].Date.Format("2006-01-02"))
		}
		if bars[i].Date.Equal(bars[i-1].Date) {
			return fmt.Errorf("duplicate bar date at index %d: %s",
				i, bars[i].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Closes extracts the close series from a bar series.
func Closes(bars []types.PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	return closes
}
