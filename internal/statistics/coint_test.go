package statistics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeCointegratedPair builds two price series sharing a common random walk:
// A tracks the walk directly, B is a scaled and shifted version of it. The
// pair is cointegrated by construction.
func makeCointegratedPair(n int, seed int64) (a, b []float64) {
	rng := rand.New(rand.NewSource(seed))
	a = make([]float64, n)
	b = make([]float64, n)
	common := 100.0
	for i := 0; i < n; i++ {
		common += rng.NormFloat64()
		a[i] = common + 0.5*rng.NormFloat64()
		b[i] = 0.8*common + 20 + 0.5*rng.NormFloat64()
	}
	return a, b
}

func TestOLSRecoversLine(t *testing.T) {
	x := make([]float64, 50)
	y := make([]float64, 50)
	for i := range x {
		x[i] = float64(i)
		y[i] = 3.0 + 2.0*x[i]
	}

	fit, err := OLS(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, fit.Beta, 1e-9)
	assert.InDelta(t, 3.0, fit.Alpha, 1e-9)
	for _, r := range fit.Residuals {
		assert.InDelta(t, 0.0, r, 1e-9)
	}
}

func TestOLSRejectsShortOrMismatchedSeries(t *testing.T) {
	_, err := OLS([]float64{1, 2}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = OLS([]float64{1, 2, 3}, []float64{1, 2})
	assert.Error(t, err)
}

func TestADFStationarySeries(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	series := make([]float64, 300)
	prev := 0.0
	for i := range series {
		prev = 0.5*prev + rng.NormFloat64()
		series[i] = prev
	}

	tau, err := ADFStatistic(series, 1)
	require.NoError(t, err)
	assert.Less(t, tau, -4.0, "strongly mean-reverting series should reject a unit root")
}

func TestADFTrendingSeries(t *testing.T) {
	series := make([]float64, 200)
	for i := range series {
		series[i] = float64(i + 1)
	}

	tau, err := ADFStatistic(series, 1)
	require.NoError(t, err)
	assert.Greater(t, tau, -1.0, "a deterministic trend must not look stationary")
}

func TestEngleGrangerDetectsCointegratedPair(t *testing.T) {
	a, b := makeCointegratedPair(200, 42)

	res, err := EngleGranger(a, b)
	require.NoError(t, err)
	assert.Less(t, res.PValue, 0.05)

	beta, err := HedgeRatio(a, b)
	require.NoError(t, err)
	assert.Greater(t, beta, 0.5)
	assert.Less(t, beta, 3.0)
}

func TestHedgeRatioFitsRawPrices(t *testing.T) {
	// a = 20 + 0.8*b exactly, so the least-squares slope on raw prices
	// recovers 0.8. The slope of the log regression does not, which pins
	// the hedge ratio to the price scale rather than the log scale.
	n := 40
	a := make([]float64, n)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = 100 + 3*float64(i) + float64((i*7)%5)
		b[i] = (a[i] - 20) / 0.8
	}

	beta, err := HedgeRatio(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, beta, 1e-9)

	logFit, err := OLS(logSeries(b), logSeries(a))
	require.NoError(t, err)
	assert.Greater(t, math.Abs(logFit.Beta-0.8), 1e-3)
}

func TestHedgeRatioRejectsShortSeries(t *testing.T) {
	_, err := HedgeRatio([]float64{1, 2}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestEngleGrangerRejectsUnrelatedSeries(t *testing.T) {
	n := 200
	a := make([]float64, n)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = 100 + float64(i) // steady trend
		b[i] = 100 + 5*math.Sin(float64(i)/7)
	}

	res, err := EngleGranger(a, b)
	require.NoError(t, err)
	assert.Greater(t, res.PValue, 0.10)
}

func TestEngleGrangerMinimumObservations(t *testing.T) {
	a := make([]float64, MinCointObservations-1)
	b := make([]float64, MinCointObservations-1)
	for i := range a {
		a[i] = 100
		b[i] = 100
	}
	_, err := EngleGranger(a, b)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSpreadIsRawPriceDifference(t *testing.T) {
	spread := Spread([]float64{110, 120}, []float64{100, 105}, 0.8)
	require.Len(t, spread, 2)
	assert.InDelta(t, 30.0, spread[0], 1e-12)
	assert.InDelta(t, 36.0, spread[1], 1e-12)
}

func TestSpreadClampsToShorterLeg(t *testing.T) {
	spread := Spread([]float64{110, 120, 130}, []float64{100, 105}, 1.0)
	assert.Len(t, spread, 2)
}

func TestRollingZScore(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}

	z, ok := RollingZScore(series, 10)
	require.True(t, ok)
	assert.Greater(t, z, 2.0, "an outlier last value should have a large z-score")

	_, ok = RollingZScore(series[:5], 10)
	assert.False(t, ok, "z-score is undefined before a full window")

	flat := []float64{5, 5, 5, 5, 5}
	_, ok = RollingZScore(flat, 5)
	assert.False(t, ok, "zero variance window has no z-score")
}
