package backtest

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
)

// Annualization constants
const (
	TradingDaysPerYear = 252
	RiskFreeRate       = 0.04
)

// Metrics is the performance summary of one backtest run.
type Metrics struct {
	StrategyName   string    `json:"strategy_name"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	TradingDays    int       `json:"trading_days"`
	InitialCapital float64   `json:"initial_capital"`
	FinalEquity    float64   `json:"final_equity"`

	TotalReturn      float64 `json:"total_return"`
	CAGR             float64 `json:"cagr"`
	AnnualVolatility float64 `json:"annual_volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`

	MaxDrawdown     float64   `json:"max_drawdown"`
	MaxDrawdownDate time.Time `json:"max_drawdown_date"`
	RecoveryDate    time.Time `json:"recovery_date"`
	Recovered       bool      `json:"recovered"`

	TotalTrades     int     `json:"total_trades"`
	BuyTrades       int     `json:"buy_trades"`
	WinRate         float64 `json:"win_rate"`
	AvgWin          float64 `json:"avg_win"`
	AvgLoss         float64 `json:"avg_loss"`
	ProfitFactor    float64 `json:"profit_factor"`
	AvgHoldingDays  float64 `json:"avg_holding_days"`
	MaxWin          float64 `json:"max_win"`
	MaxLoss         float64 `json:"max_loss"`
	TotalCommission float64 `json:"total_commission"`
}

// Analyze computes the performance metrics for a run. A result with fewer
// than two equity points yields zeroed metrics.
func Analyze(r *Result) *Metrics {
	m := &Metrics{
		StrategyName:   r.StrategyName,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		TradingDays:    len(r.EquityCurve),
		InitialCapital: r.InitialCapital,
		FinalEquity:    r.FinalEquity,
	}
	if len(r.EquityCurve) < 2 || r.InitialCapital <= 0 {
		return m
	}

	m.TotalReturn = (r.FinalEquity - r.InitialCapital) / r.InitialCapital

	years := float64(len(r.EquityCurve)) / TradingDaysPerYear
	if years > 0 && r.FinalEquity > 0 {
		m.CAGR = math.Pow(r.FinalEquity/r.InitialCapital, 1/years) - 1
	}

	daily := r.DailyReturns()
	if len(daily) > 1 {
		mean, _ := stats.Mean(daily)
		std, _ := stats.StandardDeviationSample(daily)
		m.AnnualVolatility = std * math.Sqrt(TradingDaysPerYear)
		if std > 0 {
			dailyRf := RiskFreeRate / TradingDaysPerYear
			m.SharpeRatio = (mean - dailyRf) / std * math.Sqrt(TradingDaysPerYear)
		}

		var downside []float64
		for _, ret := range daily {
			if ret < 0 {
				downside = append(downside, ret)
			}
		}
		if len(downside) > 1 {
			downStd, _ := stats.StandardDeviationSample(downside)
			downStd *= math.Sqrt(TradingDaysPerYear)
			if downStd > 0 {
				m.SortinoRatio = (m.CAGR - RiskFreeRate) / downStd
			}
		}
	}

	m.MaxDrawdown, m.MaxDrawdownDate, m.RecoveryDate, m.Recovered = maxDrawdown(r)
	analyzeTrades(r, m)
	return m
}

// maxDrawdown walks the equity curve against its running peak and reports
// the deepest trough and, when the curve later regains the peak, the
// recovery date.
func maxDrawdown(r *Result) (mdd float64, mddDate, recoveryDate time.Time, recovered bool) {
	peak := r.EquityCurve[0].Equity
	peakAtTrough := peak
	troughIdx := 0

	for i, pt := range r.EquityCurve {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if peak > 0 {
			dd := (pt.Equity - peak) / peak
			if dd < mdd {
				mdd = dd
				mddDate = pt.Date
				troughIdx = i
				peakAtTrough = peak
			}
		}
	}

	for _, pt := range r.EquityCurve[troughIdx:] {
		if pt.Equity >= peakAtTrough {
			recoveryDate = pt.Date
			recovered = true
			break
		}
	}
	return mdd, mddDate, recoveryDate, recovered
}

func analyzeTrades(r *Result, m *Metrics) {
	var sells []Trade
	for _, t := range r.Trades {
		m.TotalCommission += t.Commission
		switch t.Side {
		case "BUY":
			m.BuyTrades++
		case "SELL":
			sells = append(sells, t)
		}
	}
	m.TotalTrades = len(sells)
	if len(sells) == 0 {
		return
	}

	var wins, losses []float64
	var holdingSum float64
	m.MaxWin = sells[0].PnL
	m.MaxLoss = sells[0].PnL
	for _, t := range sells {
		holdingSum += float64(t.HoldingDays)
		if t.PnL > 0 {
			wins = append(wins, t.PnL)
		} else {
			losses = append(losses, t.PnL)
		}
		if t.PnL > m.MaxWin {
			m.MaxWin = t.PnL
		}
		if t.PnL < m.MaxLoss {
			m.MaxLoss = t.PnL
		}
	}

	m.WinRate = float64(len(wins)) / float64(len(sells))
	m.AvgHoldingDays = holdingSum / float64(len(sells))
	if len(wins) > 0 {
		m.AvgWin, _ = stats.Mean(wins)
	}
	if len(losses) > 0 {
		avgLoss, _ := stats.Mean(losses)
		m.AvgLoss = math.Abs(avgLoss)
	}
	if m.AvgLoss > 0 {
		m.ProfitFactor = m.AvgWin / m.AvgLoss
	} else if m.AvgWin > 0 {
		m.ProfitFactor = math.Inf(1)
	}
}
