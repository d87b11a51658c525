package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/quantlab/algotrader-kr/internal/backtest"
)

// CSVReporter exports trades and the equity curve as CSV files
type CSVReporter struct{}

// NewCSVReporter creates a new CSV reporter
func NewCSVReporter() *CSVReporter {
	return &CSVReporter{}
}

// WriteTradesCSV writes the trade log to a CSV file
func (r *CSVReporter) WriteTradesCSV(result *backtest.Result, path string) error {
	f, err := createWithDir(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"Date", "Strategy", "Code", "Market", "Side",
		"Quantity", "Price", "Amount", "Commission", "PnL", "Holding_Days", "Reason",
	}); err != nil {
		return err
	}

	for _, t := range result.Trades {
		record := []string{
			t.Date.Format("2006-01-02"),
			t.Strategy,
			t.Code,
			t.Market,
			t.Side,
			strconv.Itoa(t.Quantity),
			strconv.FormatFloat(t.Price, 'f', 2, 64),
			strconv.FormatFloat(t.Amount, 'f', 2, 64),
			strconv.FormatFloat(t.Commission, 'f', 2, 64),
			strconv.FormatFloat(t.PnL, 'f', 2, 64),
			strconv.Itoa(t.HoldingDays),
			t.Reason,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	return w.Error()
}

// WriteEquityCSV writes the daily equity curve to a CSV file
func (r *CSVReporter) WriteEquityCSV(result *backtest.Result, path string) error {
	f, err := createWithDir(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Date", "Equity", "Cash"}); err != nil {
		return err
	}

	for _, p := range result.EquityCurve {
		record := []string{
			p.Date.Format("2006-01-02"),
			strconv.FormatFloat(p.Equity, 'f', 2, 64),
			strconv.FormatFloat(p.Cash, 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	return w.Error()
}

// createWithDir creates path, making parent directories as needed.
func createWithDir(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return os.Create(path)
}
