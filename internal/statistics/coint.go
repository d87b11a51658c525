package statistics

import "math"

const (
	// MinCointObservations is the shortest series the cointegration test
	// accepts; below this the tau distribution approximation is useless.
	MinCointObservations = 30

	adfLags  = 1
	logFloor = 1e-8
)

// CointResult is the outcome of an Engle-Granger test on a pair of price
// series.
type CointResult struct {
	Tau    float64
	PValue float64
}

// EngleGranger runs the two-stage Engle-Granger procedure: regress log(a)
// on log(b), then ADF-test the residuals. The log transform stabilizes the
// test across price levels; it is internal to the test, and the slope of
// the log regression is not the trading hedge ratio (see HedgeRatio).
// Prices are floored at a tiny positive value before the log so a bad tick
// cannot produce -Inf.
func EngleGranger(pricesA, pricesB []float64) (*CointResult, error) {
	if len(pricesA) != len(pricesB) {
		return nil, ErrInsufficientData
	}
	if len(pricesA) < MinCointObservations {
		return nil, ErrInsufficientData
	}

	logA := logSeries(pricesA)
	logB := logSeries(pricesB)

	fit, err := OLS(logB, logA)
	if err != nil {
		return nil, err
	}

	tau, err := ADFStatistic(fit.Residuals, adfLags)
	if err != nil {
		return nil, err
	}

	return &CointResult{
		Tau:    tau,
		PValue: adfPValue(tau),
	}, nil
}

// HedgeRatio fits a = alpha + beta*b by least squares on raw prices and
// returns beta. Trading uses this slope, not the one from the log
// regression inside the cointegration test.
func HedgeRatio(pricesA, pricesB []float64) (float64, error) {
	fit, err := OLS(pricesB, pricesA)
	if err != nil {
		return 0, err
	}
	return fit.Beta, nil
}

// Spread computes a - beta*b for each observation.
func Spread(pricesA, pricesB []float64, beta float64) []float64 {
	n := len(pricesA)
	if len(pricesB) < n {
		n = len(pricesB)
	}
	spread := make([]float64, n)
	for i := 0; i < n; i++ {
		spread[i] = pricesA[i] - beta*pricesB[i]
	}
	return spread
}

func logSeries(prices []float64) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = safeLog(p)
	}
	return out
}

func safeLog(p float64) float64 {
	if p < logFloor {
		p = logFloor
	}
	return math.Log(p)
}
