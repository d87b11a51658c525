package risk

import "time"

// Side is the direction of an open position.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Position is one open holding tracked by the risk manager.
type Position struct {
	Code         string    `json:"code"`
	Market       string    `json:"market"`
	Side         Side      `json:"side"`
	Quantity     int       `json:"quantity"`
	EntryPrice   float64   `json:"entry_price"`
	CurrentPrice float64   `json:"current_price"`
	Strategy     string    `json:"strategy"`
	EntryTime    time.Time `json:"entry_time"`
}

// MarketValue returns the current notional value of the position.
func (p *Position) MarketValue() float64 {
	return float64(p.Quantity) * p.CurrentPrice
}

// PnLPct returns the unrealized profit in percent, sign-adjusted for shorts.
func (p *Position) PnLPct() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	if p.Side == SideShort {
		return (p.EntryPrice - p.CurrentPrice) / p.EntryPrice * 100
	}
	return (p.CurrentPrice - p.EntryPrice) / p.EntryPrice * 100
}

// State is the portfolio snapshot the risk checks run against.
type State struct {
	Positions        []*Position `json:"positions"`
	Cash             float64     `json:"cash"`
	TotalEquity      float64     `json:"total_equity"`
	PeakEquity       float64     `json:"peak_equity"`
	DailyStartEquity float64     `json:"daily_start_equity"`
}

// DrawdownPct returns the current drawdown from peak equity in percent.
func (s *State) DrawdownPct() float64 {
	if s.PeakEquity <= 0 {
		return 0
	}
	return (s.PeakEquity - s.TotalEquity) / s.PeakEquity * 100
}

// DailyPnLPct returns today's equity change in percent.
func (s *State) DailyPnLPct() float64 {
	if s.DailyStartEquity <= 0 {
		return 0
	}
	return (s.TotalEquity - s.DailyStartEquity) / s.DailyStartEquity * 100
}

// CashPct returns cash as a percentage of total equity.
func (s *State) CashPct() float64 {
	if s.TotalEquity <= 0 {
		return 100
	}
	return s.Cash / s.TotalEquity * 100
}

// Config holds the risk limits. Percentages are positive numbers on a 0-100
// scale; StopLossPct of 5 means a position is cut at -5%.
type Config struct {
	MaxPositionPct     float64            `json:"max_position_pct"`
	StopLossPct        float64            `json:"stop_loss_pct"`
	DailyLossLimitPct  float64            `json:"daily_loss_limit_pct"`
	MaxDrawdownPct     float64            `json:"max_drawdown_pct"`
	MaxPositions       int                `json:"max_positions"`
	MinCashPct         float64            `json:"min_cash_pct"`
	NominalCapital     float64            `json:"nominal_capital"`
	StrategyAllocation map[string]float64 `json:"strategy_allocation"`
}

// Default risk limits
const (
	DefaultMaxPositionPct    = 10.0
	DefaultStopLossPct       = 5.0
	DefaultDailyLossLimitPct = 3.0
	DefaultMaxDrawdownPct    = 15.0
	DefaultMaxPositions      = 10
	DefaultMinCashPct        = 10.0
	DefaultNominalCapital    = 10_000_000
)

// DefaultConfig returns the default risk limits.
func DefaultConfig() Config {
	return Config{
		MaxPositionPct:    DefaultMaxPositionPct,
		StopLossPct:       DefaultStopLossPct,
		DailyLossLimitPct: DefaultDailyLossLimitPct,
		MaxDrawdownPct:    DefaultMaxDrawdownPct,
		MaxPositions:      DefaultMaxPositions,
		MinCashPct:        DefaultMinCashPct,
		NominalCapital:    DefaultNominalCapital,
		StrategyAllocation: map[string]float64{
			"StatArb":      0.5,
			"DualMomentum": 0.5,
		},
	}
}

// Validate checks the limits for obvious misconfiguration.
func (c Config) Validate() error {
	if c.MaxPositionPct <= 0 || c.MaxPositionPct > 100 {
		return errInvalidLimit("max_position_pct", c.MaxPositionPct)
	}
	if c.StopLossPct <= 0 || c.StopLossPct > 100 {
		return errInvalidLimit("stop_loss_pct", c.StopLossPct)
	}
	if c.DailyLossLimitPct <= 0 || c.DailyLossLimitPct > 100 {
		return errInvalidLimit("daily_loss_limit_pct", c.DailyLossLimitPct)
	}
	if c.MaxDrawdownPct <= 0 || c.MaxDrawdownPct > 100 {
		return errInvalidLimit("max_drawdown_pct", c.MaxDrawdownPct)
	}
	if c.MaxPositions <= 0 {
		return errInvalidLimit("max_positions", float64(c.MaxPositions))
	}
	if c.MinCashPct < 0 || c.MinCashPct > 100 {
		return errInvalidLimit("min_cash_pct", c.MinCashPct)
	}
	if c.NominalCapital <= 0 {
		return errInvalidLimit("nominal_capital", c.NominalCapital)
	}
	var totalAlloc float64
	for name, frac := range c.StrategyAllocation {
		if frac < 0 || frac > 1 {
			return errInvalidAllocation(name, frac)
		}
		totalAlloc += frac
	}
	if totalAlloc > 1.0+1e-9 {
		return errAllocationOverflow(totalAlloc)
	}
	return nil
}
