// Package strategy defines the signal protocol the backtest engine and the
// live executor speak, plus the strategies that implement it.
package strategy

import (
	"time"

	"github.com/quantlab/algotrader-kr/pkg/types"
)

// Direction represents the intent of a trade signal.
type Direction int

const (
	Hold Direction = iota
	Buy
	Sell
	Close
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	case Close:
		return "CLOSE"
	default:
		return "HOLD"
	}
}

// Instrument identifies one tradable code a strategy needs data for.
type Instrument struct {
	Code   string `json:"code"`
	Market string `json:"market"`
}

// TradeSignal is one trading instruction emitted by a strategy.
//
// Quantity 0 means "let the risk manager size it"; Price 0 means "use the
// current market price". Metadata carries strategy-private tags that come
// back unchanged through OnTradeExecuted.
type TradeSignal struct {
	Strategy  string
	Code      string
	Market    string
	Direction Direction
	Quantity  int
	Price     float64
	Reason    string
	Metadata  map[string]string
}

// SignalInputs is the prepared input bundle passed from
// PrepareSignalInputs to GenerateSignals. Each strategy defines its own
// concrete type and asserts it back.
type SignalInputs interface{}

// Strategy is the protocol every trading strategy implements. The engine
// treats strategies as pure signal generators: all portfolio mutation
// happens in the engine or executor, and the strategy hears about fills
// through OnTradeExecuted.
type Strategy interface {
	// Name returns the strategy identifier used in signals, trades and
	// the risk manager's allocation table.
	Name() string

	// RequiredInstruments lists every code the strategy needs history for.
	RequiredInstruments() []Instrument

	// PrepareSignalInputs turns per-code close histories into the
	// strategy's input bundle. The second return is false when data is
	// missing or too short; the engine then skips signal generation for
	// the day without treating it as an error.
	PrepareSignalInputs(history map[string][]float64) (SignalInputs, bool)

	// GenerateSignals produces the day's trading instructions.
	GenerateSignals(inputs SignalInputs) []TradeSignal

	// ShouldSkipDate lets a strategy throttle itself (e.g. monthly
	// rebalancing) based on the equity history recorded so far.
	ShouldSkipDate(date time.Time, equityHistory []types.EquityPoint) bool

	// OnTradeExecuted reports the outcome of a signal. Strategy-internal
	// position state must only change here, and only on success.
	OnTradeExecuted(signal TradeSignal, success bool)

	// PairNames lists the tradable pair names, empty for non-pair
	// strategies.
	PairNames() []string

	// FilterPairs restricts the strategy to the named pairs. A no-op for
	// non-pair strategies.
	FilterPairs(names []string)
}
