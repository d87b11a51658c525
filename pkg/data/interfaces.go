// Package data loads daily price history from CSV files, one file per
// instrument code, with caching and chronological validation.
package data

import (
	"time"

	"github.com/quantlab/algotrader-kr/pkg/types"
)

// Provider loads daily bars for one instrument code.
type Provider interface {
	// LoadBars loads the full daily history for a code
	LoadBars(code string) ([]types.PriceBar, error)

	// ValidateBars validates the integrity of the loaded data
	ValidateBars(bars []types.PriceBar) error

	// GetName returns the name of the data provider
	GetName() string
}

// Cache stores loaded bar series keyed by instrument code.
type Cache interface {
	Get(key string) ([]types.PriceBar, bool)
	Set(key string, bars []types.PriceBar)
	Clear()
	Size() int
}

// Filter transforms and checks bar series.
type Filter interface {
	// FilterByDateRange keeps bars with start <= date <= end
	FilterByDateRange(bars []types.PriceBar, start, end time.Time) []types.PriceBar

	// ValidateTimeSequence ensures bars are in strict chronological order
	ValidateTimeSequence(bars []types.PriceBar) error
}

// CSVColumnMapping defines the column positions for different CSV layouts.
type CSVColumnMapping struct {
	DateCol    int
	OpenCol    int
	HighCol    int
	LowCol     int
	CloseCol   int
	VolumeCol  int
	MinColumns int
	DateFormat string
}

// KRXDailyFormat is the standard daily export layout:
// date,open,high,low,close,volume with ISO dates.
var KRXDailyFormat = CSVColumnMapping{
	DateCol:    0,
	OpenCol:    1,
	HighCol:    2,
	LowCol:     3,
	CloseCol:   4,
	VolumeCol:  5,
	MinColumns: 6,
	DateFormat: "2006-01-02",
}
