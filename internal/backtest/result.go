package backtest

import (
	"time"

	"github.com/quantlab/algotrader-kr/pkg/types"
)

// Trade is one executed fill in a backtest.
type Trade struct {
	Date        time.Time `json:"date"`
	Strategy    string    `json:"strategy"`
	Code        string    `json:"code"`
	Market      string    `json:"market"`
	Side        string    `json:"side"`
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
	Amount      float64   `json:"amount"`
	Commission  float64   `json:"commission"`
	PnL         float64   `json:"pnl"`
	HoldingDays int       `json:"holding_days"`
	Reason      string    `json:"reason"`
}

// Result is the full outcome of one backtest run.
type Result struct {
	StrategyName   string              `json:"strategy_name"`
	StartDate      time.Time           `json:"start_date"`
	EndDate        time.Time           `json:"end_date"`
	InitialCapital float64             `json:"initial_capital"`
	FinalEquity    float64             `json:"final_equity"`
	EquityCurve    []types.EquityPoint `json:"equity_curve"`
	Trades         []Trade             `json:"trades"`
}

// TotalReturnPct returns the whole-run return in percent.
func (r *Result) TotalReturnPct() float64 {
	if r.InitialCapital <= 0 {
		return 0
	}
	return (r.FinalEquity - r.InitialCapital) / r.InitialCapital * 100
}

// DailyReturns returns the day-over-day equity changes as fractions.
func (r *Result) DailyReturns() []float64 {
	if len(r.EquityCurve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(r.EquityCurve)-1)
	for i := 1; i < len(r.EquityCurve); i++ {
		prev := r.EquityCurve[i-1].Equity
		if prev <= 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (r.EquityCurve[i].Equity-prev)/prev)
	}
	return returns
}
