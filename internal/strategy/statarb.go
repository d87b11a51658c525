package strategy

import (
	"fmt"
	"math"
	"time"

	traderrors "github.com/quantlab/algotrader-kr/internal/errors"
	"github.com/quantlab/algotrader-kr/internal/logger"
	"github.com/quantlab/algotrader-kr/internal/monitoring"
	"github.com/quantlab/algotrader-kr/internal/statistics"
	"github.com/quantlab/algotrader-kr/pkg/types"
)

// StatArbName is the registry name of the pairs-trading strategy.
const StatArbName = "StatArb"

// PairPosition is the pair-level position state.
type PairPosition string

const (
	PairPositionNone  PairPosition = "NONE"
	PairPositionLongA PairPosition = "LONG_A"
	PairPositionLongB PairPosition = "LONG_B"
)

// PairConfig names the two legs of a tradable pair and the hedge ETF bought
// alongside either leg.
type PairConfig struct {
	Name     string `json:"name"`
	Market   string `json:"market"`
	StockA   string `json:"stock_a"`
	StockB   string `json:"stock_b"`
	HedgeETF string `json:"hedge_etf"`
}

// PairState is the per-pair analysis state. It survives across days so the
// cointegration test is only recomputed on the configured cadence.
type PairState struct {
	Beta           float64      `json:"beta"`
	SpreadMean     float64      `json:"spread_mean"`
	SpreadStd      float64      `json:"spread_std"`
	CurrentZ       float64      `json:"current_z"`
	ZValid         bool         `json:"z_valid"`
	PValue         float64      `json:"p_value"`
	IsCointegrated bool         `json:"is_cointegrated"`
	Position       PairPosition `json:"position"`
	LastDataLen    int          `json:"last_data_len"`
}

// StatArbConfig holds the pairs-trading parameters.
type StatArbConfig struct {
	Lookback    int          `json:"lookback"`
	EntryZ      float64      `json:"entry_z"`
	ExitZ       float64      `json:"exit_z"`
	StopZ       float64      `json:"stop_z"`
	RecalcDays  int          `json:"recalc_days"`
	CointPValue float64      `json:"coint_pvalue"`
	Pairs       []PairConfig `json:"pairs"`
}

// Default stat-arb parameters
const (
	DefaultStatArbLookback    = 30
	DefaultStatArbEntryZ      = 2.0
	DefaultStatArbExitZ       = 0.5
	DefaultStatArbStopZ       = 3.0
	DefaultStatArbRecalcDays  = 20
	DefaultStatArbCointPValue = 0.05

	// minBarsPerLeg is the shortest history a pair is analyzed on.
	minBarsPerLeg = 60
)

// DefaultStatArbConfig returns the default parameters with the standard
// KR index ETF pair.
func DefaultStatArbConfig() StatArbConfig {
	return StatArbConfig{
		Lookback:    DefaultStatArbLookback,
		EntryZ:      DefaultStatArbEntryZ,
		ExitZ:       DefaultStatArbExitZ,
		StopZ:       DefaultStatArbStopZ,
		RecalcDays:  DefaultStatArbRecalcDays,
		CointPValue: DefaultStatArbCointPValue,
		Pairs: []PairConfig{
			{Name: "kodex_tiger_200", Market: "KR", StockA: "069500", StockB: "102110", HedgeETF: "114800"},
		},
	}
}

// Validate checks the parameters for consistency.
func (c StatArbConfig) Validate() error {
	if c.Lookback < 2 {
		return traderrors.NewConfigurationError("statarb", "validate", "lookback must be at least 2")
	}
	if c.EntryZ <= c.ExitZ {
		return traderrors.NewConfigurationError("statarb", "validate", "entry_z must exceed exit_z")
	}
	if c.StopZ <= c.EntryZ {
		return traderrors.NewConfigurationError("statarb", "validate", "stop_z must exceed entry_z")
	}
	if c.RecalcDays < 1 {
		return traderrors.NewConfigurationError("statarb", "validate", "recalc_days must be positive")
	}
	if c.CointPValue <= 0 || c.CointPValue >= 1 {
		return traderrors.NewConfigurationError("statarb", "validate", "coint_pvalue must be in (0, 1)")
	}
	if len(c.Pairs) == 0 {
		return traderrors.NewConfigurationError("statarb", "validate", "no pairs configured")
	}
	for _, p := range c.Pairs {
		if p.Name == "" || p.StockA == "" || p.StockB == "" || p.HedgeETF == "" {
			return traderrors.NewConfigurationError("statarb", "validate",
				fmt.Sprintf("pair %q has empty fields", p.Name))
		}
		if p.StockA == p.StockB {
			return traderrors.NewConfigurationError("statarb", "validate",
				fmt.Sprintf("pair %q has identical legs", p.Name))
		}
	}
	return nil
}

// pairSeries is the aligned close history of one pair's legs.
type pairSeries struct {
	pricesA []float64
	pricesB []float64
}

// statArbInputs is the prepared input bundle for one day.
type statArbInputs struct {
	series map[string]pairSeries
}

// StatArb trades mean reversion of the price spread a - beta*b between
// cointegrated pairs. Entries hedge with an inverse ETF on the same market.
type StatArb struct {
	cfg    StatArbConfig
	pairs  []PairConfig
	states map[string]*PairState
	log    *logger.Logger
}

// NewStatArb builds the strategy from validated config.
func NewStatArb(cfg StatArbConfig, log *logger.Logger) (*StatArb, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}

	s := &StatArb{
		cfg:    cfg,
		pairs:  append([]PairConfig(nil), cfg.Pairs...),
		states: make(map[string]*PairState),
		log:    log,
	}
	for _, p := range s.pairs {
		s.states[p.Name] = &PairState{Position: PairPositionNone}
	}
	return s, nil
}

// Name implements Strategy.
func (s *StatArb) Name() string { return StatArbName }

// RequiredInstruments lists both legs and the hedge ETF of every active pair.
func (s *StatArb) RequiredInstruments() []Instrument {
	seen := make(map[string]bool)
	var out []Instrument
	add := func(code, market string) {
		if code == "" || seen[code] {
			return
		}
		seen[code] = true
		out = append(out, Instrument{Code: code, Market: market})
	}
	for _, p := range s.pairs {
		add(p.StockA, p.Market)
		add(p.StockB, p.Market)
		add(p.HedgeETF, p.Market)
	}
	return out
}

// PairNames implements Strategy.
func (s *StatArb) PairNames() []string {
	names := make([]string, 0, len(s.pairs))
	for _, p := range s.pairs {
		names = append(names, p.Name)
	}
	return names
}

// FilterPairs restricts trading to the named pairs. Unknown names are
// logged and ignored; an empty filter keeps everything.
func (s *StatArb) FilterPairs(names []string) {
	if len(names) == 0 {
		return
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var kept []PairConfig
	for _, p := range s.pairs {
		if wanted[p.Name] {
			kept = append(kept, p)
			delete(wanted, p.Name)
		}
	}
	for n := range wanted {
		s.log.Warning("pair filter: unknown pair %q ignored", n)
	}
	if len(kept) == 0 {
		s.log.Warning("pair filter matched nothing, keeping all pairs")
		return
	}
	s.pairs = kept
}

// PairStates returns the live analysis state keyed by pair name.
func (s *StatArb) PairStates() map[string]*PairState {
	return s.states
}

// ShouldSkipDate implements Strategy; stat arb evaluates every day.
func (s *StatArb) ShouldSkipDate(time.Time, []types.EquityPoint) bool { return false }

// PrepareSignalInputs aligns both legs of each pair on their common tail.
// Pairs with a missing leg or fewer than minBarsPerLeg bars are dropped for
// the day; the bundle is empty-false only when no pair qualifies.
func (s *StatArb) PrepareSignalInputs(history map[string][]float64) (SignalInputs, bool) {
	series := make(map[string]pairSeries)
	for _, p := range s.pairs {
		a, okA := history[p.StockA]
		b, okB := history[p.StockB]
		if !okA || !okB {
			continue
		}
		if len(a) < minBarsPerLeg || len(b) < minBarsPerLeg {
			continue
		}
		n := len(a)
		if len(b) < n {
			n = len(b)
		}
		series[p.Name] = pairSeries{
			pricesA: a[len(a)-n:],
			pricesB: b[len(b)-n:],
		}
	}
	if len(series) == 0 {
		return nil, false
	}
	return &statArbInputs{series: series}, true
}

// GenerateSignals analyzes each pair and walks the entry/exit/stop state
// machine. At most one transition is proposed per pair per day.
func (s *StatArb) GenerateSignals(inputs SignalInputs) []TradeSignal {
	in, ok := inputs.(*statArbInputs)
	if !ok || in == nil {
		return nil
	}

	var signals []TradeSignal
	for _, pair := range s.pairs {
		ps, ok := in.series[pair.Name]
		if !ok {
			continue
		}
		st := s.states[pair.Name]
		s.analyzePair(pair, st, ps)

		if !st.IsCointegrated {
			if st.Position != PairPositionNone {
				signals = append(signals, s.closeSignals(pair, st, "cointegration broken")...)
			}
			continue
		}
		if !st.ZValid {
			continue
		}

		z := st.CurrentZ
		switch {
		case st.Position != PairPositionNone && math.Abs(z) > s.cfg.StopZ:
			signals = append(signals, s.closeSignals(pair, st,
				fmt.Sprintf("stop: |z|=%.2f > %.2f", math.Abs(z), s.cfg.StopZ))...)

		case st.Position != PairPositionNone && math.Abs(z) < s.cfg.ExitZ:
			signals = append(signals, s.closeSignals(pair, st,
				fmt.Sprintf("exit: |z|=%.2f < %.2f", math.Abs(z), s.cfg.ExitZ))...)

		case st.Position == PairPositionNone && z > s.cfg.EntryZ:
			// A rich vs B: buy B, hedge the market leg.
			signals = append(signals, s.entrySignals(pair, pair.StockB, PairPositionLongB, z)...)

		case st.Position == PairPositionNone && z < -s.cfg.EntryZ:
			signals = append(signals, s.entrySignals(pair, pair.StockA, PairPositionLongA, z)...)
		}
	}
	return signals
}

// analyzePair refreshes beta/cointegration on the recalc cadence and the
// z-score every day.
func (s *StatArb) analyzePair(pair PairConfig, st *PairState, ps pairSeries) {
	dataLen := len(ps.pricesA)

	if st.LastDataLen == 0 || dataLen-st.LastDataLen >= s.cfg.RecalcDays {
		res, err := statistics.EngleGranger(ps.pricesA, ps.pricesB)
		if err != nil {
			st.IsCointegrated = false
			st.LastDataLen = dataLen
			s.log.LogError("cointegration test",
				traderrors.NewStatisticsError("statarb", pair.Name, err))
		} else {
			st.PValue = res.PValue
			st.IsCointegrated = res.PValue < s.cfg.CointPValue
			st.LastDataLen = dataLen
			// The hedge ratio is refit only when the pair still
			// cointegrates; a broken pair keeps the last good beta.
			if st.IsCointegrated {
				beta, betaErr := statistics.HedgeRatio(ps.pricesA, ps.pricesB)
				if betaErr != nil {
					st.IsCointegrated = false
					s.log.LogError("hedge ratio",
						traderrors.NewStatisticsError("statarb", pair.Name, betaErr))
				} else {
					st.Beta = beta
				}
			}
			s.log.Info("pair %s: coint p=%.4f beta=%.3f cointegrated=%v",
				pair.Name, st.PValue, st.Beta, st.IsCointegrated)
		}
	}

	st.ZValid = false
	if !st.IsCointegrated {
		return
	}

	spread := statistics.Spread(ps.pricesA, ps.pricesB, st.Beta)
	z, ok := statistics.RollingZScore(spread, s.cfg.Lookback)
	if !ok {
		return
	}
	st.CurrentZ = z
	st.ZValid = true
	monitoring.UpdatePairZScore(pair.Name, z)
	if len(spread) >= s.cfg.Lookback {
		if mean, std, err := statistics.MeanStd(spread[len(spread)-s.cfg.Lookback:]); err == nil {
			st.SpreadMean = mean
			st.SpreadStd = std
		}
	}
}

func (s *StatArb) entrySignals(pair PairConfig, legCode string, target PairPosition, z float64) []TradeSignal {
	reason := fmt.Sprintf("pair %s entry %s: z=%.2f", pair.Name, target, z)
	return []TradeSignal{
		{
			Strategy:  StatArbName,
			Code:      legCode,
			Market:    pair.Market,
			Direction: Buy,
			Reason:    reason,
			Metadata:  map[string]string{"pair": pair.Name, "target": string(target)},
		},
		{
			Strategy:  StatArbName,
			Code:      pair.HedgeETF,
			Market:    pair.Market,
			Direction: Buy,
			Reason:    reason + " (hedge)",
			Metadata:  map[string]string{"pair": pair.Name, "role": "hedge"},
		},
	}
}

func (s *StatArb) closeSignals(pair PairConfig, st *PairState, reason string) []TradeSignal {
	legCode := pair.StockA
	if st.Position == PairPositionLongB {
		legCode = pair.StockB
	}
	return []TradeSignal{
		{
			Strategy:  StatArbName,
			Code:      legCode,
			Market:    pair.Market,
			Direction: Close,
			Reason:    reason,
			Metadata:  map[string]string{"pair": pair.Name},
		},
		{
			Strategy:  StatArbName,
			Code:      pair.HedgeETF,
			Market:    pair.Market,
			Direction: Close,
			Reason:    reason + " (hedge)",
			Metadata:  map[string]string{"pair": pair.Name, "role": "hedge"},
		},
	}
}

// OnTradeExecuted advances the pair position state. Only successful fills
// mutate state, and hedge-leg fills never do: the pair position follows the
// main leg alone.
func (s *StatArb) OnTradeExecuted(signal TradeSignal, success bool) {
	if !success || signal.Metadata == nil {
		return
	}
	st, ok := s.states[signal.Metadata["pair"]]
	if !ok {
		return
	}
	if signal.Metadata["role"] == "hedge" {
		return
	}

	switch signal.Direction {
	case Buy:
		if target := signal.Metadata["target"]; target != "" {
			st.Position = PairPosition(target)
		}
	case Close, Sell:
		st.Position = PairPositionNone
	}
}
