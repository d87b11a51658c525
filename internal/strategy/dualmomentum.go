package strategy

import (
	"fmt"
	"time"

	traderrors "github.com/quantlab/algotrader-kr/internal/errors"
	"github.com/quantlab/algotrader-kr/internal/logger"
	"github.com/quantlab/algotrader-kr/pkg/types"
)

// DualMomentumName is the registry name of the dual momentum strategy.
const DualMomentumName = "DualMomentum"

// Allocation is the dual momentum target bucket.
type Allocation string

const (
	AllocationNone Allocation = "NONE"
	AllocationKR   Allocation = "KR"
	AllocationUS   Allocation = "US"
	AllocationSafe Allocation = "SAFE"
)

// DualMomentumConfig holds the dual momentum parameters.
type DualMomentumConfig struct {
	LookbackMonths int     `json:"lookback_months"`
	RiskFreeRate   float64 `json:"risk_free_rate"`
	KRETF          string  `json:"kr_etf"`
	USETF          string  `json:"us_etf"`
	SafeETF        string  `json:"safe_etf"`
}

// Default dual momentum parameters
const (
	DefaultDMLookbackMonths = 12
	DefaultDMRiskFreeRate   = 0.03

	// tradingDaysPerMonth approximates a month of daily bars.
	tradingDaysPerMonth = 21

	// minMomentumBars is the shortest history momentum is computed on.
	minMomentumBars = 60
)

// DefaultDualMomentumConfig returns the default parameters: KODEX 200 vs
// SPY with a KR treasury ETF as the safe asset.
func DefaultDualMomentumConfig() DualMomentumConfig {
	return DualMomentumConfig{
		LookbackMonths: DefaultDMLookbackMonths,
		RiskFreeRate:   DefaultDMRiskFreeRate,
		KRETF:          "069500",
		USETF:          "SPY",
		SafeETF:        "148070",
	}
}

// Validate checks the parameters for consistency.
func (c DualMomentumConfig) Validate() error {
	if c.LookbackMonths < 1 {
		return traderrors.NewConfigurationError("dualmomentum", "validate", "lookback_months must be positive")
	}
	if c.RiskFreeRate < 0 || c.RiskFreeRate > 1 {
		return traderrors.NewConfigurationError("dualmomentum", "validate", "risk_free_rate must be in [0, 1]")
	}
	if c.KRETF == "" || c.USETF == "" || c.SafeETF == "" {
		return traderrors.NewConfigurationError("dualmomentum", "validate", "all three ETF codes are required")
	}
	return nil
}

// dualMomentumInputs is the prepared input bundle for one rebalance check.
type dualMomentumInputs struct {
	krPrices []float64
	usPrices []float64
}

// DualMomentum compares KR vs US lookback returns (relative momentum), then
// checks the winner against the risk-free rate (absolute momentum). Losers
// of the absolute test park in the safe ETF. Rebalances monthly.
type DualMomentum struct {
	cfg        DualMomentumConfig
	allocation Allocation
	krReturn   float64
	usReturn   float64
	log        *logger.Logger
}

// NewDualMomentum builds the strategy from validated config.
func NewDualMomentum(cfg DualMomentumConfig, log *logger.Logger) (*DualMomentum, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &DualMomentum{cfg: cfg, allocation: AllocationNone, log: log}, nil
}

// Name implements Strategy.
func (d *DualMomentum) Name() string { return DualMomentumName }

// CurrentAllocation returns the confirmed allocation bucket.
func (d *DualMomentum) CurrentAllocation() Allocation { return d.allocation }

// RequiredInstruments implements Strategy.
func (d *DualMomentum) RequiredInstruments() []Instrument {
	return []Instrument{
		{Code: d.cfg.KRETF, Market: "KR"},
		{Code: d.cfg.USETF, Market: "US"},
		{Code: d.cfg.SafeETF, Market: "KR"},
	}
}

// PairNames implements Strategy; dual momentum has no pairs.
func (d *DualMomentum) PairNames() []string { return nil }

// FilterPairs implements Strategy; a no-op.
func (d *DualMomentum) FilterPairs([]string) {}

// ShouldSkipDate throttles the strategy to one evaluation per calendar
// month: any day in the same month as the last recorded equity point skips.
func (d *DualMomentum) ShouldSkipDate(date time.Time, equityHistory []types.EquityPoint) bool {
	if len(equityHistory) == 0 {
		return false
	}
	last := equityHistory[len(equityHistory)-1].Date
	return last.Year() == date.Year() && last.Month() == date.Month()
}

// PrepareSignalInputs implements Strategy.
func (d *DualMomentum) PrepareSignalInputs(history map[string][]float64) (SignalInputs, bool) {
	kr, okKR := history[d.cfg.KRETF]
	us, okUS := history[d.cfg.USETF]
	if !okKR || !okUS {
		return nil, false
	}
	if len(kr) < minMomentumBars || len(us) < minMomentumBars {
		return nil, false
	}
	return &dualMomentumInputs{krPrices: kr, usPrices: us}, true
}

// GenerateSignals emits a CLOSE of the old allocation and a BUY of the new
// one when the momentum ranking changes, and nothing otherwise.
func (d *DualMomentum) GenerateSignals(inputs SignalInputs) []TradeSignal {
	in, ok := inputs.(*dualMomentumInputs)
	if !ok || in == nil {
		return nil
	}

	d.krReturn = lookbackReturn(in.krPrices, d.cfg.LookbackMonths)
	d.usReturn = lookbackReturn(in.usPrices, d.cfg.LookbackMonths)

	next := d.determineAllocation()
	if next == d.allocation {
		return nil
	}
	d.log.Info("🔄 dual momentum rebalance: %s → %s (KR=%.1f%%, US=%.1f%%)",
		d.allocation, next, d.krReturn*100, d.usReturn*100)

	reason := fmt.Sprintf("dual momentum: %s (KR=%.1f%%, US=%.1f%%, rf=%.1f%%)",
		next, d.krReturn*100, d.usReturn*100, d.cfg.RiskFreeRate*100)

	var signals []TradeSignal
	if d.allocation != AllocationNone {
		signals = append(signals, TradeSignal{
			Strategy:  DualMomentumName,
			Code:      d.etfFor(d.allocation),
			Market:    d.marketFor(d.allocation),
			Direction: Close,
			Reason:    fmt.Sprintf("rebalance: %s → %s", d.allocation, next),
		})
	}
	signals = append(signals, TradeSignal{
		Strategy:  DualMomentumName,
		Code:      d.etfFor(next),
		Market:    d.marketFor(next),
		Direction: Buy,
		Reason:    reason,
		Metadata:  map[string]string{"target_allocation": string(next)},
	})
	return signals
}

// OnTradeExecuted confirms the allocation only when the BUY leg fills. The
// CLOSE leg alone never changes state: the following BUY determines it.
func (d *DualMomentum) OnTradeExecuted(signal TradeSignal, success bool) {
	if !success {
		return
	}
	if signal.Direction != Buy || signal.Metadata == nil {
		return
	}
	if target := signal.Metadata["target_allocation"]; target != "" {
		d.allocation = Allocation(target)
		d.log.Info("dual momentum allocation confirmed: %s", target)
	}
}

func (d *DualMomentum) determineAllocation() Allocation {
	if d.krReturn > d.usReturn {
		if d.krReturn > d.cfg.RiskFreeRate {
			return AllocationKR
		}
		return AllocationSafe
	}
	if d.usReturn > d.cfg.RiskFreeRate {
		return AllocationUS
	}
	return AllocationSafe
}

func (d *DualMomentum) etfFor(a Allocation) string {
	switch a {
	case AllocationKR:
		return d.cfg.KRETF
	case AllocationUS:
		return d.cfg.USETF
	default:
		return d.cfg.SafeETF
	}
}

func (d *DualMomentum) marketFor(a Allocation) string {
	if a == AllocationUS {
		return "US"
	}
	return "KR"
}

// lookbackReturn computes the simple return over months of trading days,
// clamped to the available history.
func lookbackReturn(prices []float64, months int) float64 {
	if len(prices) < 20 {
		return 0
	}
	days := months * tradingDaysPerMonth
	if len(prices) < days {
		days = len(prices) - 1
	}
	if days <= 0 {
		return 0
	}
	current := prices[len(prices)-1]
	past := prices[len(prices)-days]
	if past == 0 {
		return 0
	}
	return (current - past) / past
}
