// Package reporting renders backtest results to the console and exports
// them as CSV, Excel, and JSON files.
package reporting

import (
	"fmt"
	"math"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/quantlab/algotrader-kr/internal/backtest"
)

// ConsoleReporter renders results as terminal tables
type ConsoleReporter struct{}

// NewConsoleReporter creates a new console reporter
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// PrintMetrics renders the performance summary table.
func (r *ConsoleReporter) PrintMetrics(m *backtest.Metrics) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("BACKTEST RESULTS: %s", m.StrategyName)
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"📅 Period", fmt.Sprintf("%s to %s (%d days)",
			m.StartDate.Format("2006-01-02"), m.EndDate.Format("2006-01-02"), m.TradingDays)},
		{"💰 Initial Capital", fmt.Sprintf("%.0f", m.InitialCapital)},
		{"💰 Final Equity", fmt.Sprintf("%.0f", m.FinalEquity)},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"📈 Total Return", fmt.Sprintf("%.2f%%", m.TotalReturn*100)},
		{"📈 CAGR", fmt.Sprintf("%.2f%%", m.CAGR*100)},
		{"📊 Annual Volatility", fmt.Sprintf("%.2f%%", m.AnnualVolatility*100)},
		{"📊 Sharpe Ratio", fmt.Sprintf("%.2f", m.SharpeRatio)},
		{"📊 Sortino Ratio", fmt.Sprintf("%.2f", m.SortinoRatio)},
		{"📉 Max Drawdown", fmt.Sprintf("%.2f%% (%s)", m.MaxDrawdown*100, m.MaxDrawdownDate.Format("2006-01-02"))},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"🔄 Total Trades", fmt.Sprintf("%d (%d buys)", m.TotalTrades, m.BuyTrades)},
		{"✅ Win Rate", fmt.Sprintf("%.1f%%", m.WinRate*100)},
		{"💹 Profit Factor", formatProfitFactor(m.ProfitFactor)},
		{"📊 Avg Win / Loss", fmt.Sprintf("%.0f / %.0f", m.AvgWin, m.AvgLoss)},
		{"⏱ Avg Holding", fmt.Sprintf("%.1f days", m.AvgHoldingDays)},
		{"💸 Commission Paid", fmt.Sprintf("%.0f", m.TotalCommission)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, WidthMax: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 28, WidthMax: 45, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

// PrintTrades renders the trade log, most recent last.
func (r *ConsoleReporter) PrintTrades(trades []backtest.Trade, limit int) {
	if len(trades) == 0 {
		fmt.Println("No trades executed.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("TRADES")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Date", "Strategy", "Code", "Side", "Qty", "Price", "PnL", "Reason"})

	start := 0
	if limit > 0 && len(trades) > limit {
		start = len(trades) - limit
	}
	for _, tr := range trades[start:] {
		pnl := ""
		if tr.Side == "SELL" {
			pnl = fmt.Sprintf("%.0f", tr.PnL)
		}
		t.AppendRow(table.Row{
			tr.Date.Format("2006-01-02"),
			tr.Strategy,
			tr.Code,
			tr.Side,
			tr.Quantity,
			fmt.Sprintf("%.0f", tr.Price),
			pnl,
			tr.Reason,
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	t.Render()
	fmt.Println()
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "∞ (no losing trades)"
	}
	return fmt.Sprintf("%.2f", pf)
}
