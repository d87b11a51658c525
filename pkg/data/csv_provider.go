package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	traderrors "github.com/quantlab/algotrader-kr/internal/errors"
	"github.com/quantlab/algotrader-kr/pkg/types"
)

// CSVProvider loads daily bars from <dataDir>/<code>.csv files.
type CSVProvider struct {
	dataDir string
	format  CSVColumnMapping
}

// NewCSVProvider creates a provider reading the standard daily layout.
func NewCSVProvider(dataDir string) *CSVProvider {
	return &CSVProvider{
		dataDir: dataDir,
		format:  KRXDailyFormat,
	}
}

// NewCSVProviderWithFormat creates a provider with a custom column layout.
func NewCSVProviderWithFormat(dataDir string, format CSVColumnMapping) *CSVProvider {
	return &CSVProvider{
		dataDir: dataDir,
		format:  format,
	}
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadBars loads, sorts, and de-duplicates the daily history for a code.
// Malformed rows are skipped with a warning rather than failing the load.
func (p *CSVProvider) LoadBars(code string) ([]types.PriceBar, error) {
	filename := filepath.Join(p.dataDir, code+".csv")
	file, err := os.Open(filename)
	if err != nil {
		return nil, traderrors.Wrap(err, traderrors.ErrorCategoryData, "data", "load").
			WithContext("code", code).
			WithContext("file", filename)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var bars []types.PriceBar
	lineNum := 0
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading %s at line %d: %w", filename, lineNum+1, err)
		}
		lineNum++

		// Skip a header row
		if lineNum == 1 && !isDataRow(record, p.format) {
			continue
		}

		if len(record) < p.format.MinColumns {
			log.Printf("⚠️ %s line %d: expected %d columns, got %d, skipping",
				code, lineNum, p.format.MinColumns, len(record))
			continue
		}

		bar, err := p.parseRow(record)
		if err != nil {
			log.Printf("⚠️ %s line %d: %v, skipping", code, lineNum, err)
			continue
		}
		if !bar.IsValid() {
			log.Printf("⚠️ %s line %d: inconsistent OHLC, skipping", code, lineNum)
			continue
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, traderrors.New(traderrors.ErrorCategoryData, "data", "load",
			fmt.Sprintf("no usable rows in %s", filename))
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return dedupeByDate(code, bars), nil
}

func (p *CSVProvider) parseRow(record []string) (types.PriceBar, error) {
	f := p.format

	date, err := time.Parse(f.DateFormat, strings.TrimSpace(record[f.DateCol]))
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("invalid date %q", record[f.DateCol])
	}
	open, err := strconv.ParseFloat(strings.TrimSpace(record[f.OpenCol]), 64)
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("invalid open %q", record[f.OpenCol])
	}
	high, err := strconv.ParseFloat(strings.TrimSpace(record[f.HighCol]), 64)
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("invalid high %q", record[f.HighCol])
	}
	low, err := strconv.ParseFloat(strings.TrimSpace(record[f.LowCol]), 64)
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("invalid low %q", record[f.LowCol])
	}
	closePrice, err := strconv.ParseFloat(strings.TrimSpace(record[f.CloseCol]), 64)
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("invalid close %q", record[f.CloseCol])
	}
	volume, err := strconv.ParseInt(strings.TrimSpace(record[f.VolumeCol]), 10, 64)
	if err != nil {
		return types.PriceBar{}, fmt.Errorf("invalid volume %q", record[f.VolumeCol])
	}

	return types.PriceBar{
		Date:   date,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}

// ValidateBars checks chronological order and bar consistency.
func (p *CSVProvider) ValidateBars(bars []types.PriceBar) error {
	for i, bar := range bars {
		if !bar.IsValid() {
			return traderrors.New(traderrors.ErrorCategoryData, "data", "validate",
				fmt.Sprintf("inconsistent bar at index %d (%s)", i, bar.Date.Format("2006-01-02")))
		}
		if i > 0 && !bars[i-1].Date.Before(bar.Date) {
			return traderrors.New(traderrors.ErrorCategoryData, "data", "validate",
				fmt.Sprintf("bars out of order at index %d (%s)", i, bar.Date.Format("2006-01-02")))
		}
	}
	return nil
}

// isDataRow reports whether a record parses as data, to distinguish a
// header row from a headerless file.
func isDataRow(record []string, format CSVColumnMapping) bool {
	if len(record) <= format.DateCol {
		return false
	}
	_, err := time.Parse(format.DateFormat, strings.TrimSpace(record[format.DateCol]))
	return err == nil
}

// dedupeByDate keeps the first bar for each calendar date.
func dedupeByDate(code string, bars []types.PriceBar) []types.PriceBar {
	deduped := bars[:0:0]
	for i, bar := range bars {
		if i > 0 && bar.Date.Equal(bars[i-1].Date) {
			log.Printf("⚠️ %s: duplicate bar for %s, keeping first", code, bar.Date.Format("2006-01-02"))
			continue
		}
		deduped = append(deduped, bar)
	}
	return deduped
}
