package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/quantlab/algotrader-kr/internal/backtest"
)

// ExcelReporter exports a full workbook: summary metrics, trade log, and
// the daily equity curve.
type ExcelReporter struct{}

// NewExcelReporter creates a new Excel reporter
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

// excelStyles holds the style ids used across sheets
type excelStyles struct {
	header   int
	currency int
	percent  int
}

// WriteWorkbook writes the result and its metrics to an .xlsx file.
func (r *ExcelReporter) WriteWorkbook(result *backtest.Result, metrics *backtest.Metrics, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Summary"
	const tradesSheet = "Trades"
	const equitySheet = "Equity"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	if _, err := fx.NewSheet(tradesSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(equitySheet); err != nil {
		return err
	}

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, summarySheet, metrics, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, tradesSheet, result, styles); err != nil {
		return err
	}
	if err := r.writeEquitySheet(fx, equitySheet, result, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Size:  11,
			Color: "FFFFFF",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.currency, err = fx.NewStyle(&excelize.Style{
		NumFmt: 3, // #,##0
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.percent, err = fx.NewStyle(&excelize.Style{
		NumFmt: 10, // 0.00%
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	return styles, err
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, m *backtest.Metrics, styles excelStyles) error {
	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Strategy", m.StrategyName, 0},
		{"Start Date", m.StartDate.Format("2006-01-02"), 0},
		{"End Date", m.EndDate.Format("2006-01-02"), 0},
		{"Trading Days", m.TradingDays, 0},
		{"Initial Capital", m.InitialCapital, styles.currency},
		{"Final Equity", m.FinalEquity, styles.currency},
		{"Total Return", m.TotalReturn, styles.percent},
		{"CAGR", m.CAGR, styles.percent},
		{"Annual Volatility", m.AnnualVolatility, styles.percent},
		{"Sharpe Ratio", m.SharpeRatio, 0},
		{"Sortino Ratio", m.SortinoRatio, 0},
		{"Max Drawdown", m.MaxDrawdown, styles.percent},
		{"Total Trades", m.TotalTrades, 0},
		{"Win Rate", m.WinRate, styles.percent},
		{"Avg Win", m.AvgWin, styles.currency},
		{"Avg Loss", m.AvgLoss, styles.currency},
		{"Avg Holding Days", m.AvgHoldingDays, 0},
		{"Total Commission", m.TotalCommission, styles.currency},
	}

	if err := fx.SetCellValue(sheet, "A1", "Metric"); err != nil {
		return err
	}
	if err := fx.SetCellValue(sheet, "B1", "Value"); err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", "B1", styles.header); err != nil {
		return err
	}

	for i, row := range rows {
		labelCell := fmt.Sprintf("A%d", i+2)
		valueCell := fmt.Sprintf("B%d", i+2)
		if err := fx.SetCellValue(sheet, labelCell, row.label); err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, valueCell, row.value); err != nil {
			return err
		}
		if row.style != 0 {
			if err := fx.SetCellStyle(sheet, valueCell, valueCell, row.style); err != nil {
				return err
			}
		}
	}

	return fx.SetColWidth(sheet, "A", "B", 20)
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, result *backtest.Result, styles excelStyles) error {
	headers := []string{"Date", "Strategy", "Code", "Market", "Side",
		"Quantity", "Price", "Amount", "Commission", "PnL", "Holding Days", "Reason"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, styles.header); err != nil {
			return err
		}
	}

	for i, t := range result.Trades {
		rowNum := i + 2
		values := []interface{}{
			t.Date.Format("2006-01-02"), t.Strategy, t.Code, t.Market, t.Side,
			t.Quantity, t.Price, t.Amount, t.Commission, t.PnL, t.HoldingDays, t.Reason,
		}
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, rowNum)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	return fx.SetColWidth(sheet, "A", "L", 14)
}

func (r *ExcelReporter) writeEquitySheet(fx *excelize.File, sheet string, result *backtest.Result, styles excelStyles) error {
	headers := []string{"Date", "Equity", "Cash"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, styles.header); err != nil {
			return err
		}
	}

	for i, p := range result.EquityCurve {
		rowNum := i + 2
		cells := []interface{}{p.Date.Format("2006-01-02"), p.Equity, p.Cash}
		for j, v := range cells {
			cell, err := excelize.CoordinatesToCellName(j+1, rowNum)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	return fx.SetColWidth(sheet, "A", "C", 16)
}
