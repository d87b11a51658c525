package reporting

import (
	"encoding/json"

	"github.com/quantlab/algotrader-kr/internal/backtest"
)

// jsonReport is the combined export payload
type jsonReport struct {
	Metrics *backtest.Metrics `json:"metrics"`
	Result  *backtest.Result  `json:"result"`
}

// WriteJSON writes the result and metrics as a single indented JSON file.
func WriteJSON(result *backtest.Result, metrics *backtest.Metrics, path string) error {
	f, err := createWithDir(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{Metrics: metrics, Result: result})
}
