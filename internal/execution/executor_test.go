package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/algotrader-kr/internal/risk"
	"github.com/quantlab/algotrader-kr/internal/state"
	"github.com/quantlab/algotrader-kr/internal/strategy"
	"github.com/quantlab/algotrader-kr/pkg/types"
)

// mockBroker scripts prices and order outcomes.
type mockBroker struct {
	prices    map[string]float64
	orders    []Order
	failCodes map[string]bool
}

func newMockBroker() *mockBroker {
	return &mockBroker{
		prices:    make(map[string]float64),
		failCodes: make(map[string]bool),
	}
}

func (b *mockBroker) SubmitOrder(_ context.Context, order Order) (*Fill, error) {
	if b.failCodes[order.Code] {
		return nil, errors.New("exchange rejected order")
	}
	b.orders = append(b.orders, order)
	return &Fill{OrderID: "ord-1", Quantity: order.Quantity, Price: b.prices[order.Code]}, nil
}

func (b *mockBroker) CurrentPrice(_ context.Context, code, _ string) (float64, error) {
	price, ok := b.prices[code]
	if !ok {
		return 0, errors.New("no quote")
	}
	return price, nil
}

// callbackStrategy records fill callbacks.
type callbackStrategy struct {
	name  string
	calls []bool
}

func (s *callbackStrategy) Name() string                               { return s.name }
func (s *callbackStrategy) RequiredInstruments() []strategy.Instrument { return nil }
func (s *callbackStrategy) PairNames() []string                        { return nil }
func (s *callbackStrategy) FilterPairs([]string)                       {}
func (s *callbackStrategy) ShouldSkipDate(time.Time, []types.EquityPoint) bool {
	return false
}
func (s *callbackStrategy) PrepareSignalInputs(map[string][]float64) (strategy.SignalInputs, bool) {
	return nil, false
}
func (s *callbackStrategy) GenerateSignals(strategy.SignalInputs) []strategy.TradeSignal {
	return nil
}
func (s *callbackStrategy) OnTradeExecuted(_ strategy.TradeSignal, success bool) {
	s.calls = append(s.calls, success)
}

func liveRiskManager(t *testing.T) *risk.Manager {
	t.Helper()
	cfg := risk.DefaultConfig()
	cfg.MaxPositionPct = 50
	cfg.MinCashPct = 1
	cfg.StrategyAllocation = map[string]float64{}
	m, err := risk.NewManager(cfg, state.NewMemoryKillSwitchStore(), false, nil)
	require.NoError(t, err)
	m.UpdateEquity(10_000_000, 10_000_000)
	m.StartNewDay()
	return m
}

func buySig(code string, qty int) strategy.TradeSignal {
	return strategy.TradeSignal{Strategy: "Mock", Code: code, Market: "KR", Direction: strategy.Buy, Quantity: qty}
}

func TestExecuteBuyRegistersPosition(t *testing.T) {
	broker := newMockBroker()
	broker.prices["005930"] = 70_000
	rm := liveRiskManager(t)
	strat := &callbackStrategy{name: "Mock"}

	x := NewExecutor(broker, rm, nil, []strategy.Strategy{strat}, nil, nil)
	x.ExecuteSignals(context.Background(), []strategy.TradeSignal{buySig("005930", 10)})

	require.Len(t, broker.orders, 1)
	assert.Equal(t, "BUY", broker.orders[0].Side)

	pos := rm.PositionFor("005930")
	require.NotNil(t, pos)
	assert.Equal(t, 10, pos.Quantity)
	assert.Equal(t, 70_000.0, pos.EntryPrice)

	require.Equal(t, []bool{true}, strat.calls)
}

func TestBrokerFailureNotifiesStrategyFailure(t *testing.T) {
	broker := newMockBroker()
	broker.prices["005930"] = 70_000
	broker.failCodes["005930"] = true
	rm := liveRiskManager(t)
	strat := &callbackStrategy{name: "Mock"}

	x := NewExecutor(broker, rm, nil, []strategy.Strategy{strat}, nil, nil)
	x.ExecuteSignals(context.Background(), []strategy.TradeSignal{buySig("005930", 10)})

	assert.Nil(t, rm.PositionFor("005930"))
	require.Equal(t, []bool{false}, strat.calls)
}

func TestRiskRejectionSkipsBroker(t *testing.T) {
	broker := newMockBroker()
	broker.prices["005930"] = 70_000
	rm := liveRiskManager(t)
	strat := &callbackStrategy{name: "Mock"}

	x := NewExecutor(broker, rm, nil, []strategy.Strategy{strat}, nil, nil)
	// 100 shares at 70,000 is 7M: 70% of equity against a 50% cap
	x.ExecuteSignals(context.Background(), []strategy.TradeSignal{buySig("005930", 100)})

	assert.Empty(t, broker.orders, "a rejected signal must never reach the broker")
	require.Equal(t, []bool{false}, strat.calls)
}

func TestPortfolioBreachAbandonsCycle(t *testing.T) {
	broker := newMockBroker()
	broker.prices["005930"] = 70_000
	rm := liveRiskManager(t)
	rm.UpdateEquity(9_000_000, 9_000_000) // -10% day, limit is 3%

	x := NewExecutor(broker, rm, nil, nil, nil, nil)
	x.ExecuteSignals(context.Background(), []strategy.TradeSignal{buySig("005930", 10)})

	assert.Empty(t, broker.orders)
	active, reason := rm.KillSwitchActive()
	assert.True(t, active, "breach must trip the kill switch")
	assert.Contains(t, reason, "daily loss")
}

func TestStopLossSellsRunBeforeStrategySignals(t *testing.T) {
	broker := newMockBroker()
	broker.prices["AAA"] = 80 // -20% against a 100 entry
	broker.prices["BBB"] = 100
	rm := liveRiskManager(t)
	rm.AddPosition(&risk.Position{
		Code: "AAA", Market: "KR", Side: risk.SideLong,
		Quantity: 10, EntryPrice: 100, CurrentPrice: 100,
		Strategy: "Mock", EntryTime: time.Now(),
	})

	strat := &callbackStrategy{name: "Mock"}
	x := NewExecutor(broker, rm, nil, []strategy.Strategy{strat}, nil, nil)
	x.ExecuteSignals(context.Background(), []strategy.TradeSignal{buySig("BBB", 5)})

	require.Len(t, broker.orders, 2)
	assert.Equal(t, "SELL", broker.orders[0].Side)
	assert.Equal(t, "AAA", broker.orders[0].Code)
	assert.Equal(t, "BUY", broker.orders[1].Side)
	assert.Nil(t, rm.PositionFor("AAA"))
}

func TestSellWithoutPositionIsDropped(t *testing.T) {
	broker := newMockBroker()
	rm := liveRiskManager(t)

	x := NewExecutor(broker, rm, nil, nil, nil, nil)
	x.ExecuteSignals(context.Background(), []strategy.TradeSignal{
		{Strategy: "Mock", Code: "GHOST", Market: "KR", Direction: strategy.Sell},
	})

	assert.Empty(t, broker.orders)
}
