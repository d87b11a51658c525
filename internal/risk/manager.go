// Package risk enforces portfolio-level limits before any order is placed.
// Every proposed entry runs through a fixed ladder of checks; the first
// failure wins and its reason string is what gets logged and reported.
package risk

import (
	"fmt"
	"time"

	traderrors "github.com/quantlab/algotrader-kr/internal/errors"
	"github.com/quantlab/algotrader-kr/internal/logger"
	"github.com/quantlab/algotrader-kr/internal/state"
)

func errInvalidLimit(name string, value float64) error {
	return traderrors.NewConfigurationError("risk", "validate",
		fmt.Sprintf("invalid %s: %v", name, value))
}

func errInvalidAllocation(name string, frac float64) error {
	return traderrors.NewConfigurationError("risk", "validate",
		fmt.Sprintf("strategy allocation for %s out of range: %v", name, frac))
}

func errAllocationOverflow(total float64) error {
	return traderrors.NewConfigurationError("risk", "validate",
		fmt.Sprintf("strategy allocations sum to %.3f (> 1.0)", total))
}

// Manager owns the portfolio risk state and the kill switch.
//
// In backtest mode the kill switch, daily loss and drawdown checks are
// skipped: a historical simulation must be able to ride through a drawdown
// to measure it.
type Manager struct {
	cfg          Config
	backtestMode bool
	state        *State
	store        state.KillSwitchStore
	killActive   bool
	killReason   string
	log          *logger.Logger
}

// NewManager builds a risk manager. The kill-switch record is loaded from
// the store immediately so a previously tripped switch is honored.
func NewManager(cfg Config, store state.KillSwitchStore, backtestMode bool, log *logger.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}

	ks, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load kill switch: %w", err)
	}

	m := &Manager{
		cfg:          cfg,
		backtestMode: backtestMode,
		state:        &State{},
		store:        store,
		killActive:   ks.Active,
		killReason:   ks.Reason,
		log:          log,
	}
	if ks.Active {
		m.log.Risk("⚠️ kill switch active at startup: %s", ks.Reason)
	}
	return m, nil
}

// Config returns the active risk limits.
func (m *Manager) Config() Config { return m.cfg }

// State returns the live risk state.
func (m *Manager) State() *State { return m.state }

// CanOpenPosition runs the entry checks in their fixed order and returns
// the first failure's reason. proposedValue is the notional of the intended
// entry in account currency.
func (m *Manager) CanOpenPosition(code string, proposedValue float64, strategyID string) (bool, string) {
	// 1. kill switch
	if !m.backtestMode && m.killActive {
		return false, fmt.Sprintf("kill switch active: %s", m.killReason)
	}

	// 2. daily loss limit
	if !m.backtestMode {
		if pnl := m.state.DailyPnLPct(); pnl <= -m.cfg.DailyLossLimitPct {
			return false, fmt.Sprintf("daily loss limit: %.2f%% <= -%.2f%%", pnl, m.cfg.DailyLossLimitPct)
		}
	}

	// 3. max drawdown
	if !m.backtestMode {
		if dd := m.state.DrawdownPct(); dd >= m.cfg.MaxDrawdownPct {
			return false, fmt.Sprintf("max drawdown: %.2f%% >= %.2f%%", dd, m.cfg.MaxDrawdownPct)
		}
	}

	// 4. position count
	if len(m.state.Positions) >= m.cfg.MaxPositions {
		return false, fmt.Sprintf("max positions reached (%d)", m.cfg.MaxPositions)
	}

	// 5. concentration
	if m.state.TotalEquity > 0 {
		positionPct := proposedValue / m.state.TotalEquity * 100
		if positionPct > m.cfg.MaxPositionPct {
			return false, fmt.Sprintf("position too large: %.1f%% > %.1f%% of equity", positionPct, m.cfg.MaxPositionPct)
		}
	}

	// 6. cash buffer
	if m.state.TotalEquity > 0 {
		cashAfter := (m.state.Cash - proposedValue) / m.state.TotalEquity * 100
		if cashAfter < m.cfg.MinCashPct {
			return false, fmt.Sprintf("cash buffer: %.1f%% < %.1f%% after trade", cashAfter, m.cfg.MinCashPct)
		}
	}

	// 7. per-strategy budget
	if frac, ok := m.cfg.StrategyAllocation[strategyID]; ok {
		budget := m.allocationBase() * frac
		used := m.usedByStrategy(strategyID)
		if used+proposedValue > budget {
			return false, fmt.Sprintf("strategy budget exceeded: %s used %.0f + %.0f > %.0f",
				strategyID, used, proposedValue, budget)
		}
	}

	return true, ""
}

// CalculatePositionSize returns the share quantity for a new entry: 80% of
// the per-position equity cap, clamped to what remains of the strategy's
// budget, floor-divided by price.
func (m *Manager) CalculatePositionSize(price float64, market, strategyID string) int {
	if price <= 0 {
		return 0
	}

	total := m.state.TotalEquity
	if total <= 0 {
		total = m.cfg.NominalCapital
	}

	target := total * (m.cfg.MaxPositionPct / 100) * 0.8

	if frac, ok := m.cfg.StrategyAllocation[strategyID]; ok {
		remaining := m.allocationBase()*frac - m.usedByStrategy(strategyID)
		if remaining <= 0 {
			return 0
		}
		if target > remaining {
			target = remaining
		}
	}

	return int(target / price)
}

// CheckStopLoss reports whether a position has fallen through the stop.
func (m *Manager) CheckStopLoss(pos *Position) bool {
	return pos.PnLPct() <= -m.cfg.StopLossPct
}

// AddPosition registers a freshly opened position.
func (m *Manager) AddPosition(pos *Position) {
	m.state.Positions = append(m.state.Positions, pos)
	m.log.Info("position opened: %s %s qty=%d @ %.2f (%s)",
		pos.Side, pos.Code, pos.Quantity, pos.EntryPrice, pos.Strategy)
}

// RemovePosition drops the position for code and returns it, or nil when
// there is no such position.
func (m *Manager) RemovePosition(code string) *Position {
	for i, pos := range m.state.Positions {
		if pos.Code == code {
			m.state.Positions = append(m.state.Positions[:i], m.state.Positions[i+1:]...)
			return pos
		}
	}
	return nil
}

// PositionFor returns the open position for code, or nil.
func (m *Manager) PositionFor(code string) *Position {
	for _, pos := range m.state.Positions {
		if pos.Code == code {
			return pos
		}
	}
	return nil
}

// UpdatePrices refreshes current prices on open positions. Codes without a
// quote keep their previous mark.
func (m *Manager) UpdatePrices(prices map[string]float64) {
	for _, pos := range m.state.Positions {
		if price, ok := prices[pos.Code]; ok && price > 0 {
			pos.CurrentPrice = price
		}
	}
}

// UpdateEquity records the latest equity snapshot. Peak equity only
// ratchets upward.
func (m *Manager) UpdateEquity(totalEquity, cash float64) {
	m.state.TotalEquity = totalEquity
	m.state.Cash = cash
	if totalEquity > m.state.PeakEquity {
		m.state.PeakEquity = totalEquity
	}
	if m.state.DailyStartEquity == 0 {
		m.state.DailyStartEquity = totalEquity
	}
}

// StartNewDay resets the daily loss baseline.
func (m *Manager) StartNewDay() {
	m.state.DailyStartEquity = m.state.TotalEquity
}

// ActivateKillSwitch trips and persists the kill switch.
func (m *Manager) ActivateKillSwitch(reason string) error {
	m.killActive = true
	m.killReason = reason
	m.log.Risk("🚨 KILL SWITCH ACTIVATED: %s", reason)
	return m.store.Save(state.KillSwitch{Active: true, Reason: reason, UpdatedAt: time.Now()})
}

// DeactivateKillSwitch clears and persists the kill switch.
func (m *Manager) DeactivateKillSwitch() error {
	m.killActive = false
	m.killReason = ""
	m.log.Risk("kill switch deactivated")
	return m.store.Save(state.KillSwitch{Active: false, UpdatedAt: time.Now()})
}

// KillSwitchActive reports the kill-switch state and the trip reason.
func (m *Manager) KillSwitchActive() (bool, string) {
	return m.killActive, m.killReason
}

// CheckPortfolioRisk verifies the portfolio-wide limits that guard a live
// session. A breach trips the kill switch so the halt survives restarts.
func (m *Manager) CheckPortfolioRisk() (bool, string) {
	if m.killActive {
		return false, fmt.Sprintf("kill switch active: %s", m.killReason)
	}

	if pnl := m.state.DailyPnLPct(); pnl <= -m.cfg.DailyLossLimitPct {
		reason := fmt.Sprintf("daily loss %.2f%% breached limit %.2f%%", pnl, m.cfg.DailyLossLimitPct)
		if err := m.ActivateKillSwitch(reason); err != nil {
			m.log.LogError("kill switch persist", err)
		}
		return false, reason
	}

	if dd := m.state.DrawdownPct(); dd >= m.cfg.MaxDrawdownPct {
		reason := fmt.Sprintf("drawdown %.2f%% breached limit %.2f%%", dd, m.cfg.MaxDrawdownPct)
		if err := m.ActivateKillSwitch(reason); err != nil {
			m.log.LogError("kill switch persist", err)
		}
		return false, reason
	}

	return true, ""
}

// allocationBase is the capital base strategy budgets are carved from.
func (m *Manager) allocationBase() float64 {
	base := m.state.TotalEquity + m.state.Cash
	if base <= 0 {
		base = m.cfg.NominalCapital
	}
	return base
}

func (m *Manager) usedByStrategy(strategyID string) float64 {
	var used float64
	for _, pos := range m.state.Positions {
		if pos.Strategy == strategyID {
			used += pos.MarketValue()
		}
	}
	return used
}
