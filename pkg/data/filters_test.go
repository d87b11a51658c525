package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/algotrader-kr/pkg/types"
)

func dailyBars(start time.Time, closes ...float64) []types.PriceBar {
	bars := make([]types.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = types.PriceBar{
			Date: start.AddDate(0, 0, i),
			Open: c, High: c, Low: c, Close: c,
			Volume: 1000,
		}
	}
	return bars
}

func TestFilterByDateRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := dailyBars(start, 1, 2, 3, 4, 5)
	f := NewDefaultFilter()

	got := f.FilterByDateRange(bars, start.AddDate(0, 0, 1), start.AddDate(0, 0, 3))
	require.Len(t, got, 3)
	assert.Equal(t, 2.0, got[0].Close)
	assert.Equal(t, 4.0, got[2].Close)

	// zero bounds leave that side open
	assert.Len(t, f.FilterByDateRange(bars, time.Time{}, start.AddDate(0, 0, 2)), 3)
	assert.Len(t, f.FilterByDateRange(bars, start.AddDate(0, 0, 3), time.Time{}), 2)
	assert.Len(t, f.FilterByDateRange(bars, time.Time{}, time.Time{}), 5)

	// disjoint range
	assert.Empty(t, f.FilterByDateRange(bars, start.AddDate(1, 0, 0), start.AddDate(1, 0, 5)))
}

func TestValidateTimeSequence(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewDefaultFilter()

	require.NoError(t, f.ValidateTimeSequence(dailyBars(start, 1, 2, 3)))
	require.NoError(t, f.ValidateTimeSequence(nil))

	out := dailyBars(start, 1, 2, 3)
	out[1], out[2] = out[2], out[1]
	require.Error(t, f.ValidateTimeSequence(out))

	dup := dailyBars(start, 1, 2)
	dup[1].Date = dup[0].Date
	err := f.ValidateTimeSequence(dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestCloses(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []float64{1, 2, 3}, Closes(dailyBars(start, 1, 2, 3)))
	assert.Empty(t, Closes(nil))
}

func TestLoadUniverseDropsShortHistories(t *testing.T) {
	dir := t.TempDir()

	long := "date,open,high,low,close,volume\n"
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		long += start.AddDate(0, 0, i).Format("2006-01-02") + ",100,101,99,100,1000\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "LONG.csv"), []byte(long), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SHORT.csv"),
		[]byte("date,open,high,low,close,volume\n2024-01-02,100,101,99,100,1000\n"), 0o644))

	loader := NewLoader(NewCSVProvider(dir), 5)
	universe := loader.LoadUniverse([]string{"LONG", "SHORT", "MISSING", "LONG", ""}, time.Time{})

	require.Len(t, universe, 1)
	require.Contains(t, universe, "LONG")
	assert.Len(t, universe["LONG"], 10)
}

// staticProvider feeds the loader canned series without touching disk.
type staticProvider struct {
	bars map[string][]types.PriceBar
}

func (p *staticProvider) LoadBars(code string) ([]types.PriceBar, error) {
	bars, ok := p.bars[code]
	if !ok {
		return nil, os.ErrNotExist
	}
	return bars, nil
}

func (p *staticProvider) ValidateBars([]types.PriceBar) error { return nil }

func (p *staticProvider) GetName() string { return "static" }

func TestLoadUniverseClipsAtEndDate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	provider := &staticProvider{bars: map[string][]types.PriceBar{
		"AAA": dailyBars(start, 1, 2, 3, 4, 5, 6, 7, 8),
	}}

	loader := NewLoader(provider, 3)
	universe := loader.LoadUniverse([]string{"AAA"}, start.AddDate(0, 0, 4))

	require.Contains(t, universe, "AAA")
	require.Len(t, universe["AAA"], 5, "bars after the end date are clipped")
	assert.Equal(t, 5.0, universe["AAA"][4].Close)

	// clipping can leave too little history
	universe = loader.LoadUniverse([]string{"AAA"}, start.AddDate(0, 0, 1))
	assert.Empty(t, universe)
}

func TestLoadUniverseDropsOutOfOrderSeries(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	shuffled := dailyBars(start, 1, 2, 3, 4, 5)
	shuffled[1], shuffled[3] = shuffled[3], shuffled[1]
	provider := &staticProvider{bars: map[string][]types.PriceBar{
		"BAD":  shuffled,
		"GOOD": dailyBars(start, 1, 2, 3, 4, 5),
	}}

	loader := NewLoader(provider, 3)
	universe := loader.LoadUniverse([]string{"BAD", "GOOD"}, time.Time{})

	require.Len(t, universe, 1)
	assert.Contains(t, universe, "GOOD")
}
