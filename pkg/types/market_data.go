package types

import "time"

// PriceBar represents a single daily candlestick for one instrument.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// IsValid checks basic bar consistency
func (b PriceBar) IsValid() bool {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return false
	}
	if b.High < b.Low {
		return false
	}
	if b.Close > b.High || b.Close < b.Low {
		return false
	}
	if b.Open > b.High || b.Open < b.Low {
		return false
	}
	return b.Volume >= 0
}

// EquityPoint is one entry of the daily equity history recorded by the
// backtest engine and consulted by strategies for rebalance scheduling.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
	Cash   float64   `json:"cash"`
}
