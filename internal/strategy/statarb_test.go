package strategy

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeCointegratedPair builds two price series driven by one common random
// walk, so the pair is cointegrated by construction.
func makeCointegratedPair(n int, seed int64) (a, b []float64) {
	rng := rand.New(rand.NewSource(seed))
	a = make([]float64, n)
	b = make([]float64, n)
	common := 100.0
	for i := 0; i < n; i++ {
		common += rng.NormFloat64()
		a[i] = common + 0.5*rng.NormFloat64()
		b[i] = 0.8*common + 20 + 0.5*rng.NormFloat64()
	}
	return a, b
}

func statArbTestConfig() StatArbConfig {
	cfg := DefaultStatArbConfig()
	cfg.Pairs = []PairConfig{
		{Name: "test_pair", Market: "KR", StockA: "AAA", StockB: "BBB", HedgeETF: "HHH"},
	}
	return cfg
}

func TestStatArbConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*StatArbConfig)
	}{
		{"entry below exit", func(c *StatArbConfig) { c.EntryZ = 0.4 }},
		{"stop below entry", func(c *StatArbConfig) { c.StopZ = 1.0 }},
		{"no pairs", func(c *StatArbConfig) { c.Pairs = nil }},
		{"identical legs", func(c *StatArbConfig) { c.Pairs[0].StockB = c.Pairs[0].StockA }},
		{"bad p-value", func(c *StatArbConfig) { c.CointPValue = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := statArbTestConfig()
			tt.mutate(&cfg)
			_, err := NewStatArb(cfg, nil)
			assert.Error(t, err)
		})
	}

	_, err := NewStatArb(statArbTestConfig(), nil)
	assert.NoError(t, err)
}

func TestStatArbDetectsCointegratedPair(t *testing.T) {
	cfg := statArbTestConfig()
	s, err := NewStatArb(cfg, nil)
	require.NoError(t, err)

	a, b := makeCointegratedPair(200, 42)
	inputs, ok := s.PrepareSignalInputs(map[string][]float64{"AAA": a, "BBB": b})
	require.True(t, ok)

	s.GenerateSignals(inputs)

	st := s.PairStates()["test_pair"]
	require.NotNil(t, st)
	assert.True(t, st.IsCointegrated)
	assert.Less(t, st.PValue, cfg.CointPValue)
	assert.Greater(t, st.Beta, 0.5)
	assert.Less(t, st.Beta, 3.0)
	assert.Equal(t, 200, st.LastDataLen)
}

func TestStatArbCointegrationCacheCadence(t *testing.T) {
	cfg := statArbTestConfig()
	cfg.RecalcDays = 20
	s, err := NewStatArb(cfg, nil)
	require.NoError(t, err)

	st := s.PairStates()["test_pair"]
	st.IsCointegrated = true
	st.Beta = 1.23
	st.LastDataLen = 100

	a, b := makeCointegratedPair(110, 42)
	inputs, ok := s.PrepareSignalInputs(map[string][]float64{"AAA": a, "BBB": b})
	require.True(t, ok)
	s.GenerateSignals(inputs)
	assert.Equal(t, 1.23, st.Beta, "10 new bars are inside the recalc cadence")
	assert.Equal(t, 100, st.LastDataLen)

	a, b = makeCointegratedPair(125, 42)
	inputs, ok = s.PrepareSignalInputs(map[string][]float64{"AAA": a, "BBB": b})
	require.True(t, ok)
	s.GenerateSignals(inputs)
	assert.NotEqual(t, 1.23, st.Beta, "25 new bars must trigger a recheck")
	assert.Equal(t, 125, st.LastDataLen)
}

func TestStatArbKeepsBetaWhenCointegrationLost(t *testing.T) {
	cfg := statArbTestConfig()
	cfg.RecalcDays = 20
	s, err := NewStatArb(cfg, nil)
	require.NoError(t, err)

	st := s.PairStates()["test_pair"]
	st.IsCointegrated = true
	st.Beta = 1.23
	st.LastDataLen = 50

	// a trend against a bounded oscillation cannot cointegrate
	n := 80
	a := make([]float64, n)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = 100 + float64(i)
		b[i] = 100 + 5*math.Sin(float64(i)/7)
	}

	inputs, ok := s.PrepareSignalInputs(map[string][]float64{"AAA": a, "BBB": b})
	require.True(t, ok)
	s.GenerateSignals(inputs)

	assert.False(t, st.IsCointegrated)
	assert.Equal(t, 1.23, st.Beta, "a failed recheck must not refit the hedge ratio")
	assert.Equal(t, n, st.LastDataLen)
}

// scriptedPair drives the z-score directly: leg B is pinned at 100, beta is
// forced to 1 and the recalc cadence is pushed out of reach, so the spread
// is leg A's price minus 100. A jump in A spikes the z-score; reverting A
// brings it back inside the exit band.
func scriptedPair(t *testing.T) (*StatArb, []float64, []float64) {
	t.Helper()
	cfg := statArbTestConfig()
	cfg.EntryZ = 2.0
	cfg.ExitZ = 0.5
	cfg.StopZ = 3.5
	cfg.RecalcDays = 250

	s, err := NewStatArb(cfg, nil)
	require.NoError(t, err)

	a := make([]float64, 60)
	b := make([]float64, 60)
	for i := range a {
		// small wiggle keeps the rolling window's variance nonzero
		a[i] = 100 + float64((i*7)%13-6)*0.05
		b[i] = 100
	}

	st := s.PairStates()["test_pair"]
	st.IsCointegrated = true
	st.Beta = 1.0
	st.LastDataLen = len(a)
	return s, a, b
}

func runDay(t *testing.T, s *StatArb, a, b []float64) []TradeSignal {
	t.Helper()
	inputs, ok := s.PrepareSignalInputs(map[string][]float64{"AAA": a, "BBB": b})
	require.True(t, ok)
	return s.GenerateSignals(inputs)
}

func TestStatArbEntryThenExitCycle(t *testing.T) {
	s, a, b := scriptedPair(t)
	st := s.PairStates()["test_pair"]

	// quiet day: no signal
	signals := runDay(t, s, a, b)
	assert.Empty(t, signals)

	// leg A dislocates upward: z spikes far above the entry threshold
	a = append(a, 102)
	b = append(b, 100)
	signals = runDay(t, s, a, b)
	require.Len(t, signals, 2, "entry emits the main leg and the hedge")
	assert.Equal(t, Buy, signals[0].Direction)
	assert.Equal(t, "BBB", signals[0].Code, "A rich means buy the cheap leg B")
	assert.Equal(t, string(PairPositionLongB), signals[0].Metadata["target"])
	assert.Equal(t, Buy, signals[1].Direction)
	assert.Equal(t, "HHH", signals[1].Code)
	assert.Equal(t, "hedge", signals[1].Metadata["role"])

	// fills confirmed
	s.OnTradeExecuted(signals[0], true)
	s.OnTradeExecuted(signals[1], true)
	assert.Equal(t, PairPositionLongB, st.Position)

	// dislocation heals: z falls inside the exit band
	a = append(a, 100)
	b = append(b, 100)
	signals = runDay(t, s, a, b)
	require.Len(t, signals, 2, "exit closes the main leg and the hedge")
	assert.Equal(t, Close, signals[0].Direction)
	assert.Equal(t, "BBB", signals[0].Code)
	assert.Contains(t, signals[0].Reason, "exit")
	assert.Equal(t, Close, signals[1].Direction)
	assert.Equal(t, "HHH", signals[1].Code)

	s.OnTradeExecuted(signals[0], true)
	s.OnTradeExecuted(signals[1], true)
	assert.Equal(t, PairPositionNone, st.Position)

	// flat again: no further signals
	a = append(a, 100)
	b = append(b, 100)
	signals = runDay(t, s, a, b)
	assert.Empty(t, signals)
}

func TestStatArbStopOverridesExit(t *testing.T) {
	s, a, b := scriptedPair(t)
	st := s.PairStates()["test_pair"]
	st.Position = PairPositionLongA

	// a huge dislocation while holding must close with the stop reason
	a = append(a, 102)
	b = append(b, 100)
	signals := runDay(t, s, a, b)
	require.Len(t, signals, 2)
	assert.Equal(t, Close, signals[0].Direction)
	assert.Equal(t, "AAA", signals[0].Code, "LONG_A closes leg A")
	assert.Contains(t, signals[0].Reason, "stop")
}

func TestStatArbClosesWhenCointegrationBreaks(t *testing.T) {
	s, a, b := scriptedPair(t)
	st := s.PairStates()["test_pair"]
	st.Position = PairPositionLongB
	st.IsCointegrated = false

	signals := runDay(t, s, a, b)
	require.Len(t, signals, 2)
	assert.Equal(t, Close, signals[0].Direction)
	assert.Contains(t, signals[0].Reason, "cointegration broken")
}

func TestStatArbPositionStateOnlyMovesOnSuccess(t *testing.T) {
	s, _, _ := scriptedPair(t)
	st := s.PairStates()["test_pair"]

	entry := TradeSignal{
		Strategy:  StatArbName,
		Code:      "BBB",
		Direction: Buy,
		Metadata:  map[string]string{"pair": "test_pair", "target": string(PairPositionLongB)},
	}

	s.OnTradeExecuted(entry, false)
	assert.Equal(t, PairPositionNone, st.Position, "rejected fill must not move state")

	s.OnTradeExecuted(entry, true)
	assert.Equal(t, PairPositionLongB, st.Position)

	hedgeClose := TradeSignal{
		Strategy:  StatArbName,
		Code:      "HHH",
		Direction: Close,
		Metadata:  map[string]string{"pair": "test_pair", "role": "hedge"},
	}
	s.OnTradeExecuted(hedgeClose, true)
	assert.Equal(t, PairPositionLongB, st.Position, "hedge fills never move pair state")

	mainClose := TradeSignal{
		Strategy:  StatArbName,
		Code:      "BBB",
		Direction: Close,
		Metadata:  map[string]string{"pair": "test_pair"},
	}
	s.OnTradeExecuted(mainClose, true)
	assert.Equal(t, PairPositionNone, st.Position)
}

func TestStatArbPrepareSignalInputs(t *testing.T) {
	s, err := NewStatArb(statArbTestConfig(), nil)
	require.NoError(t, err)

	long := make([]float64, 80)
	short := make([]float64, 30)
	for i := range long {
		long[i] = 100
	}
	for i := range short {
		short[i] = 100
	}

	_, ok := s.PrepareSignalInputs(map[string][]float64{"AAA": long})
	assert.False(t, ok, "missing leg")

	_, ok = s.PrepareSignalInputs(map[string][]float64{"AAA": long, "BBB": short})
	assert.False(t, ok, "leg below the 60-bar minimum")

	inputs, ok := s.PrepareSignalInputs(map[string][]float64{"AAA": long, "BBB": long})
	require.True(t, ok)
	in := inputs.(*statArbInputs)
	assert.Len(t, in.series["test_pair"].pricesA, 80)
}

func TestStatArbAlignsUnequalLegs(t *testing.T) {
	s, err := NewStatArb(statArbTestConfig(), nil)
	require.NoError(t, err)

	a := make([]float64, 100)
	b := make([]float64, 70)
	for i := range a {
		a[i] = 100 + float64(i)
	}
	for i := range b {
		b[i] = 200 + float64(i)
	}

	inputs, ok := s.PrepareSignalInputs(map[string][]float64{"AAA": a, "BBB": b})
	require.True(t, ok)
	in := inputs.(*statArbInputs)
	ps := in.series["test_pair"]
	assert.Len(t, ps.pricesA, 70, "legs align on the common tail")
	assert.Equal(t, a[30], ps.pricesA[0])
	assert.Equal(t, b[0], ps.pricesB[0])
}

func TestStatArbFilterPairs(t *testing.T) {
	cfg := statArbTestConfig()
	cfg.Pairs = append(cfg.Pairs,
		PairConfig{Name: "second", Market: "KR", StockA: "CCC", StockB: "DDD", HedgeETF: "HHH"})
	s, err := NewStatArb(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"test_pair", "second"}, s.PairNames())

	s.FilterPairs([]string{"second", "nonexistent"})
	assert.Equal(t, []string{"second"}, s.PairNames())

	s.FilterPairs(nil)
	assert.Equal(t, []string{"second"}, s.PairNames(), "empty filter is a no-op")
}

func TestStatArbRequiredInstruments(t *testing.T) {
	s, err := NewStatArb(statArbTestConfig(), nil)
	require.NoError(t, err)

	instruments := s.RequiredInstruments()
	codes := make([]string, len(instruments))
	for i, ins := range instruments {
		codes[i] = ins.Code
	}
	assert.ElementsMatch(t, []string{"AAA", "BBB", "HHH"}, codes)
}
