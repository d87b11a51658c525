// Package execution turns strategy signals into live broker orders, with
// the risk manager standing between every signal and the wire.
package execution

import (
	"context"
	"fmt"
	"time"

	traderrors "github.com/quantlab/algotrader-kr/internal/errors"
	"github.com/quantlab/algotrader-kr/internal/logger"
	"github.com/quantlab/algotrader-kr/internal/monitoring"
	"github.com/quantlab/algotrader-kr/internal/risk"
	"github.com/quantlab/algotrader-kr/internal/strategy"
)

// Executor routes signals through risk checks to the broker.
//
// Execution order inside one cycle is fixed: refresh marks, portfolio risk
// gate, stop-loss sells, then strategy signals. A portfolio breach trips
// the kill switch and abandons the whole cycle.
type Executor struct {
	broker     Broker
	riskMgr    *risk.Manager
	notifier   Notifier
	strategies map[string]strategy.Strategy
	health     *monitoring.HealthChecker
	log        *logger.Logger
}

// NewExecutor builds an executor. Strategies are indexed by name for fill
// callbacks; nil notifier and logger degrade to no-ops.
func NewExecutor(broker Broker, riskMgr *risk.Manager, notifier Notifier,
	strategies []strategy.Strategy, health *monitoring.HealthChecker, log *logger.Logger) *Executor {

	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	byName := make(map[string]strategy.Strategy, len(strategies))
	for _, s := range strategies {
		byName[s.Name()] = s
	}

	return &Executor{
		broker:     broker,
		riskMgr:    riskMgr,
		notifier:   notifier,
		strategies: byName,
		health:     health,
		log:        log,
	}
}

// ScanStopLosses returns SELL signals for every open position through its
// stop.
func (x *Executor) ScanStopLosses() []strategy.TradeSignal {
	var signals []strategy.TradeSignal
	for _, pos := range x.riskMgr.State().Positions {
		if x.riskMgr.CheckStopLoss(pos) {
			signals = append(signals, strategy.TradeSignal{
				Strategy:  pos.Strategy,
				Code:      pos.Code,
				Market:    pos.Market,
				Direction: strategy.Sell,
				Reason:    fmt.Sprintf("stop loss: %.1f%%", pos.PnLPct()),
			})
		}
	}
	return signals
}

// ExecuteSignals runs one execution cycle over the given strategy signals.
func (x *Executor) ExecuteSignals(ctx context.Context, signals []strategy.TradeSignal) {
	x.refreshMarks(ctx)

	if safe, reason := x.riskMgr.CheckPortfolioRisk(); !safe {
		x.log.Risk("portfolio risk breach, cycle abandoned: %s", reason)
		x.notifier.NotifyRisk("🚨 KILL SWITCH: " + reason)
		x.endCycle()
		return
	}

	for _, sig := range x.ScanStopLosses() {
		if err := x.executeSell(ctx, sig); err != nil {
			x.failSignal(sig, "stop loss sell", err)
		}
	}

	for _, sig := range signals {
		var err error
		switch sig.Direction {
		case strategy.Buy:
			err = x.executeBuy(ctx, sig)
		case strategy.Sell, strategy.Close:
			err = x.executeSell(ctx, sig)
		case strategy.Hold:
			// explicit no-op
		}
		if err != nil {
			x.failSignal(sig, "signal execution", err)
		}
	}

	x.endCycle()
}

func (x *Executor) refreshMarks(ctx context.Context) {
	prices := make(map[string]float64)
	for _, pos := range x.riskMgr.State().Positions {
		price, err := x.broker.CurrentPrice(ctx, pos.Code, pos.Market)
		if err != nil {
			x.log.LogWarning("price refresh", "%s: %v", pos.Code, err)
			continue
		}
		prices[pos.Code] = price
	}
	x.riskMgr.UpdatePrices(prices)
}

func (x *Executor) executeBuy(ctx context.Context, sig strategy.TradeSignal) error {
	price := sig.Price
	if price <= 0 {
		p, err := x.broker.CurrentPrice(ctx, sig.Code, sig.Market)
		if err != nil {
			return err
		}
		price = p
	}
	if price <= 0 {
		x.log.Warning("no price for %s, buy skipped", sig.Code)
		return nil
	}

	quantity := sig.Quantity
	if quantity <= 0 {
		quantity = x.riskMgr.CalculatePositionSize(price, sig.Market, sig.Strategy)
	}
	if quantity <= 0 {
		x.log.Warning("position size 0 for %s, buy skipped", sig.Code)
		return nil
	}

	if ok, reason := x.riskMgr.CanOpenPosition(sig.Code, price*float64(quantity), sig.Strategy); !ok {
		x.log.Risk("%s rejected: %s", sig.Code, reason)
		x.notifier.NotifyRisk(fmt.Sprintf("%s: %s", sig.Code, reason))
		monitoring.RecordRiskRejection(sig.Strategy)
		x.notifyStrategy(sig, false)
		return nil
	}

	fill, err := x.broker.SubmitOrder(ctx, Order{Code: sig.Code, Market: sig.Market, Side: "BUY", Quantity: quantity})
	if err != nil {
		return err
	}

	x.riskMgr.AddPosition(&risk.Position{
		Code:         sig.Code,
		Market:       sig.Market,
		Side:         risk.SideLong,
		Quantity:     fill.Quantity,
		EntryPrice:   fill.Price,
		CurrentPrice: fill.Price,
		Strategy:     sig.Strategy,
		EntryTime:    time.Now(),
	})

	monitoring.RecordTrade(sig.Strategy, "BUY")
	x.notifier.NotifyTrade(sig.Strategy, sig.Code, "BUY", fill.Quantity, fill.Price, sig.Reason)
	x.log.LogTradeExecution("BUY", sig.Code, sig.Market, fill.Quantity, fill.Price,
		fill.Price*float64(fill.Quantity), 0, sig.Reason)

	x.notifyStrategy(sig, true)
	return nil
}

func (x *Executor) executeSell(ctx context.Context, sig strategy.TradeSignal) error {
	pos := x.riskMgr.PositionFor(sig.Code)
	if pos == nil {
		x.log.Warning("no position in %s, sell dropped", sig.Code)
		return nil
	}

	fill, err := x.broker.SubmitOrder(ctx, Order{Code: sig.Code, Market: pos.Market, Side: "SELL", Quantity: pos.Quantity})
	if err != nil {
		return err
	}

	x.riskMgr.RemovePosition(sig.Code)

	monitoring.RecordTrade(sig.Strategy, "SELL")
	x.notifier.NotifyTrade(sig.Strategy, sig.Code, "SELL", fill.Quantity, fill.Price, sig.Reason)
	x.log.LogTradeExecution("SELL", sig.Code, pos.Market, fill.Quantity, fill.Price,
		fill.Price*float64(fill.Quantity), 0, sig.Reason)

	x.notifyStrategy(sig, true)
	return nil
}

func (x *Executor) failSignal(sig strategy.TradeSignal, op string, err error) {
	berr := traderrors.NewBrokerError("executor", op, err).WithContext("code", sig.Code)
	x.log.LogError(op, berr)
	x.notifier.NotifyError(fmt.Sprintf("%s failed for %s: %v", op, sig.Code, err))
	monitoring.RecordError("broker")
	if berr.IsRetryable() {
		x.log.Warning("%s: order not filled, the next cycle may retry", sig.Code)
	}
	x.notifyStrategy(sig, false)
}

func (x *Executor) notifyStrategy(sig strategy.TradeSignal, success bool) {
	if s, ok := x.strategies[sig.Strategy]; ok {
		s.OnTradeExecuted(sig, success)
	}
}

func (x *Executor) endCycle() {
	st := x.riskMgr.State()
	active, _ := x.riskMgr.KillSwitchActive()
	monitoring.UpdatePortfolio(st.TotalEquity, len(st.Positions))
	monitoring.UpdateKillSwitch(active)
	if x.health != nil {
		x.health.RecordCycle(st.TotalEquity, active)
	}
}
