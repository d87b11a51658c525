// Package backtest simulates strategy trading over historical daily bars.
// The engine walks trading dates in order and runs the same five phases each
// day: mark prices, check stops, generate signals, enforce risk and execute,
// record equity.
package backtest

import (
	"sort"
	"time"

	traderrors "github.com/quantlab/algotrader-kr/internal/errors"
	"github.com/quantlab/algotrader-kr/internal/logger"
	"github.com/quantlab/algotrader-kr/internal/risk"
	"github.com/quantlab/algotrader-kr/internal/strategy"
	"github.com/quantlab/algotrader-kr/pkg/data"
	"github.com/quantlab/algotrader-kr/pkg/types"
)

// EngineConfig holds the simulation cost model and starting capital.
type EngineConfig struct {
	InitialCapital float64 `json:"initial_capital"`
	CommissionRate float64 `json:"commission_rate"`
	SlippageRate   float64 `json:"slippage_rate"`
}

// Default simulation parameters
const (
	DefaultInitialCapital = 10_000_000
	DefaultCommissionRate = 0.00015
	DefaultSlippageRate   = 0.001
)

// DefaultEngineConfig returns the default simulation parameters.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		InitialCapital: DefaultInitialCapital,
		CommissionRate: DefaultCommissionRate,
		SlippageRate:   DefaultSlippageRate,
	}
}

// Validate checks the parameters for obvious misconfiguration.
func (c EngineConfig) Validate() error {
	if c.InitialCapital <= 0 {
		return traderrors.NewConfigurationError("backtest", "validate", "initial_capital must be positive")
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return traderrors.NewConfigurationError("backtest", "validate", "commission_rate out of range")
	}
	if c.SlippageRate < 0 || c.SlippageRate >= 1 {
		return traderrors.NewConfigurationError("backtest", "validate", "slippage_rate out of range")
	}
	return nil
}

// priceSeries is the per-instrument lookup cache: dates sorted ascending
// with closes alongside. History truncation and same-day lookups are binary
// searches, so a strategy can never see a bar after the simulation date.
type priceSeries struct {
	dates  []time.Time
	closes []float64
}

func newPriceSeries(bars []types.PriceBar) *priceSeries {
	sorted := append([]types.PriceBar(nil), bars...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	ps := &priceSeries{
		dates:  make([]time.Time, 0, len(sorted)),
		closes: data.Closes(sorted),
	}
	for _, bar := range sorted {
		ps.dates = append(ps.dates, bar.Date)
	}
	return ps
}

// closesThrough returns all closes with date <= the given date.
func (ps *priceSeries) closesThrough(date time.Time) []float64 {
	idx := sort.Search(len(ps.dates), func(i int) bool { return ps.dates[i].After(date) })
	return ps.closes[:idx]
}

// closeOn returns the close for the exact date.
func (ps *priceSeries) closeOn(date time.Time) (float64, bool) {
	idx := sort.Search(len(ps.dates), func(i int) bool { return !ps.dates[i].Before(date) })
	if idx < len(ps.dates) && ps.dates[idx].Equal(date) {
		return ps.closes[idx], true
	}
	return 0, false
}

// Engine runs one strategy against historical data. Positions live in the
// engine's map and in the risk manager's state as shared pointers, so a
// price mark in one place is visible in both.
type Engine struct {
	cfg     EngineConfig
	strat   strategy.Strategy
	riskMgr *risk.Manager
	log     *logger.Logger

	series        map[string]*priceSeries
	cash          float64
	positions     map[string]*risk.Position
	equityHistory []types.EquityPoint
	trades        []Trade
	lastDate      time.Time
}

// NewEngine builds a backtest engine. The risk manager must be in backtest
// mode; kill-switch and drawdown gates belong to live trading.
func NewEngine(cfg EngineConfig, strat strategy.Strategy, riskMgr *risk.Manager, log *logger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		cfg:       cfg,
		strat:     strat,
		riskMgr:   riskMgr,
		log:       log,
		series:    make(map[string]*priceSeries),
		positions: make(map[string]*risk.Position),
	}, nil
}

// Run simulates the strategy over the given per-code bar histories. Bars
// before start stay available as lookback history; trading happens on the
// sorted union of bar dates within [start, end]. Zero start/end means
// unbounded on that side.
func (e *Engine) Run(data map[string][]types.PriceBar, start, end time.Time) (*Result, error) {
	if len(data) == 0 {
		return nil, traderrors.NewDataError("backtest", "run", traderrors.NewFatalError("backtest", "run", "no price data"))
	}

	for code, bars := range data {
		e.series[code] = newPriceSeries(bars)
	}

	tradingDates := e.collectTradingDates(start, end)
	if len(tradingDates) == 0 {
		return nil, traderrors.NewDataError("backtest", "run",
			traderrors.NewFatalError("backtest", "run", "no trading dates in range"))
	}

	e.cash = e.cfg.InitialCapital
	e.riskMgr.UpdateEquity(e.cfg.InitialCapital, e.cfg.InitialCapital)

	e.log.Info("backtest start: %s, %d trading days", e.strat.Name(), len(tradingDates))

	for _, date := range tradingDates {
		e.ProcessDay(date)
	}

	e.liquidateAll(tradingDates[len(tradingDates)-1])

	return &Result{
		StrategyName:   e.strat.Name(),
		StartDate:      tradingDates[0],
		EndDate:        tradingDates[len(tradingDates)-1],
		InitialCapital: e.cfg.InitialCapital,
		FinalEquity:    e.equityHistory[len(e.equityHistory)-1].Equity,
		EquityCurve:    e.equityHistory,
		Trades:         e.trades,
	}, nil
}

// ProcessDay runs the five phases for one trading date. Dates at or before
// the last processed date are no-ops, so replaying a day cannot double-fill.
func (e *Engine) ProcessDay(date time.Time) {
	if !e.lastDate.IsZero() && !date.After(e.lastDate) {
		return
	}
	e.lastDate = date

	// phase 1: mark open positions to today's closes
	e.updatePrices(date)

	// phase 2: stop losses fire before any new signal
	e.checkStopLosses(date)

	// phase 3: signals, unless the strategy sits this date out
	var signals []strategy.TradeSignal
	if !e.strat.ShouldSkipDate(date, e.equityHistory) {
		history := e.historyThrough(date)
		if inputs, ok := e.strat.PrepareSignalInputs(history); ok {
			signals = e.strat.GenerateSignals(inputs)
		}
	}

	// phase 4: risk gate + execution
	for _, sig := range signals {
		switch sig.Direction {
		case strategy.Buy:
			e.executeBuy(date, sig)
		case strategy.Sell, strategy.Close:
			e.executeSell(date, sig, sig.Reason)
		case strategy.Hold:
			// explicit no-op
		}
	}

	// phase 5: record equity
	e.recordEquity(date)
}

func (e *Engine) collectTradingDates(start, end time.Time) []time.Time {
	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, ps := range e.series {
		for _, d := range ps.dates {
			if !start.IsZero() && d.Before(start) {
				continue
			}
			if !end.IsZero() && d.After(end) {
				continue
			}
			if !seen[d] {
				seen[d] = true
				dates = append(dates, d)
			}
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func (e *Engine) updatePrices(date time.Time) {
	prices := make(map[string]float64)
	for code, ps := range e.series {
		if close, ok := ps.closeOn(date); ok {
			prices[code] = close
		}
	}
	e.riskMgr.UpdatePrices(prices)
}

func (e *Engine) checkStopLosses(date time.Time) {
	var stopped []*risk.Position
	for _, pos := range e.positions {
		if e.riskMgr.CheckStopLoss(pos) {
			stopped = append(stopped, pos)
		}
	}
	sort.Slice(stopped, func(i, j int) bool { return stopped[i].Code < stopped[j].Code })
	for _, pos := range stopped {
		sig := strategy.TradeSignal{
			Strategy:  pos.Strategy,
			Code:      pos.Code,
			Market:    pos.Market,
			Direction: strategy.Sell,
		}
		e.executeSell(date, sig, "stop loss")
	}
}

// historyThrough assembles per-code close histories truncated at date.
func (e *Engine) historyThrough(date time.Time) map[string][]float64 {
	history := make(map[string][]float64)
	for _, ins := range e.strat.RequiredInstruments() {
		if ps, ok := e.series[ins.Code]; ok {
			if closes := ps.closesThrough(date); len(closes) > 0 {
				history[ins.Code] = closes
			}
		}
	}
	return history
}

func (e *Engine) executeBuy(date time.Time, sig strategy.TradeSignal) {
	if _, held := e.positions[sig.Code]; held {
		e.log.Warning("%s: already holding %s, buy skipped", date.Format("2006-01-02"), sig.Code)
		return
	}

	price := sig.Price
	if price <= 0 {
		p, ok := e.series[sig.Code].closeOnIfPresent(date)
		if !ok {
			e.log.Warning("%s: no price for %s, buy skipped", date.Format("2006-01-02"), sig.Code)
			return
		}
		price = p
	}

	quantity := sig.Quantity
	if quantity <= 0 {
		quantity = e.riskMgr.CalculatePositionSize(price, sig.Market, sig.Strategy)
	}
	if quantity <= 0 {
		e.log.Warning("%s: position size 0 for %s, buy skipped", date.Format("2006-01-02"), sig.Code)
		return
	}

	execPrice := price * (1 + e.cfg.SlippageRate)

	// shrink to an affordable quantity before the risk gate sees it
	if float64(quantity)*execPrice*(1+e.cfg.CommissionRate) > e.cash {
		quantity = int(e.cash * 0.95 / (execPrice * (1 + e.cfg.CommissionRate)))
		if quantity <= 0 {
			e.log.Warning("%s: insufficient cash for %s, buy skipped", date.Format("2006-01-02"), sig.Code)
			return
		}
	}

	gross := execPrice * float64(quantity)
	commission := gross * e.cfg.CommissionRate

	if ok, reason := e.riskMgr.CanOpenPosition(sig.Code, gross, sig.Strategy); !ok {
		e.log.Risk("%s: %s rejected: %s", date.Format("2006-01-02"), sig.Code, reason)
		e.strat.OnTradeExecuted(sig, false)
		return
	}

	e.cash -= gross + commission

	pos := &risk.Position{
		Code:         sig.Code,
		Market:       sig.Market,
		Side:         risk.SideLong,
		Quantity:     quantity,
		EntryPrice:   execPrice,
		CurrentPrice: execPrice,
		Strategy:     sig.Strategy,
		EntryTime:    date,
	}
	e.positions[sig.Code] = pos
	e.riskMgr.AddPosition(pos)

	e.trades = append(e.trades, Trade{
		Date:       date,
		Strategy:   sig.Strategy,
		Code:       sig.Code,
		Market:     sig.Market,
		Side:       "BUY",
		Quantity:   quantity,
		Price:      execPrice,
		Amount:     gross,
		Commission: commission,
		Reason:     sig.Reason,
	})
	e.log.LogTradeExecution("BUY", sig.Code, sig.Market, quantity, execPrice, gross, commission, sig.Reason)

	e.strat.OnTradeExecuted(sig, true)
}

func (e *Engine) executeSell(date time.Time, sig strategy.TradeSignal, reason string) {
	pos, held := e.positions[sig.Code]
	if !held {
		e.log.Warning("%s: no position in %s, sell dropped", date.Format("2006-01-02"), sig.Code)
		return
	}

	price := sig.Price
	if price <= 0 {
		p, ok := e.series[sig.Code].closeOnIfPresent(date)
		if !ok {
			// no bar today: exit at the last known mark
			p = pos.CurrentPrice
		}
		price = p
	}
	if price <= 0 {
		e.log.Warning("%s: no price for %s, sell dropped", date.Format("2006-01-02"), sig.Code)
		return
	}

	execPrice := price * (1 - e.cfg.SlippageRate)
	gross := execPrice * float64(pos.Quantity)
	commission := gross * e.cfg.CommissionRate
	net := gross - commission

	costBasis := pos.EntryPrice * float64(pos.Quantity)
	pnl := net - costBasis - costBasis*e.cfg.CommissionRate

	e.cash += net
	delete(e.positions, sig.Code)
	e.riskMgr.RemovePosition(sig.Code)

	holdingDays := int(date.Sub(pos.EntryTime).Hours() / 24)

	e.trades = append(e.trades, Trade{
		Date:        date,
		Strategy:    pos.Strategy,
		Code:        sig.Code,
		Market:      pos.Market,
		Side:        "SELL",
		Quantity:    pos.Quantity,
		Price:       execPrice,
		Amount:      net,
		Commission:  commission,
		PnL:         pnl,
		HoldingDays: holdingDays,
		Reason:      reason,
	})
	e.log.LogTradeExecution("SELL", sig.Code, pos.Market, pos.Quantity, execPrice, net, commission, reason)

	e.strat.OnTradeExecuted(sig, true)
}

// liquidateAll closes every open position at the end of the run so final
// equity is fully realized.
func (e *Engine) liquidateAll(date time.Time) {
	if len(e.positions) == 0 {
		return
	}

	codes := make([]string, 0, len(e.positions))
	for code := range e.positions {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	e.log.Info("end of backtest: liquidating %d open positions", len(codes))
	for _, code := range codes {
		pos := e.positions[code]
		sig := strategy.TradeSignal{
			Strategy:  pos.Strategy,
			Code:      code,
			Market:    pos.Market,
			Direction: strategy.Close,
		}
		e.executeSell(date, sig, "end of backtest liquidation")
	}

	// replace the last equity point with the fully realized value
	if len(e.equityHistory) > 0 {
		last := &e.equityHistory[len(e.equityHistory)-1]
		last.Equity = e.cash
		last.Cash = e.cash
		e.riskMgr.UpdateEquity(e.cash, e.cash)
	}
}

func (e *Engine) recordEquity(date time.Time) {
	equity := e.cash
	for _, pos := range e.positions {
		equity += pos.MarketValue()
	}
	e.equityHistory = append(e.equityHistory, types.EquityPoint{Date: date, Equity: equity, Cash: e.cash})
	e.riskMgr.UpdateEquity(equity, e.cash)
}

// closeOnIfPresent is closeOn with a nil-safe receiver: signals can name
// codes the run has no data for.
func (ps *priceSeries) closeOnIfPresent(date time.Time) (float64, bool) {
	if ps == nil {
		return 0, false
	}
	return ps.closeOn(date)
}
