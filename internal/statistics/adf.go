package statistics

// ADFStatistic computes the augmented Dickey-Fuller tau statistic for a
// zero-mean series (no constant, no trend), with the given number of lagged
// difference terms. The regression is
//
//	dy[t] = rho*y[t-1] + sum_i phi_i*dy[t-i] + e[t]
//
// and tau is the t-statistic of rho. Residuals from an OLS fit with an
// intercept already have mean zero, so the no-constant form is the right one
// for the Engle-Granger second stage.
func ADFStatistic(series []float64, lags int) (float64, error) {
	n := len(series)
	if lags < 0 {
		lags = 0
	}
	if n < lags+10 {
		return 0, ErrInsufficientData
	}

	diff := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diff[i-1] = series[i] - series[i-1]
	}

	// Observation t runs over indices where all lagged diffs exist.
	start := lags + 1
	m := n - 1 - lags
	if m <= lags+2 {
		return 0, ErrInsufficientData
	}

	x := make([][]float64, 0, m)
	y := make([]float64, 0, m)
	for t := start; t < n; t++ {
		row := make([]float64, 1+lags)
		row[0] = series[t-1]
		for i := 1; i <= lags; i++ {
			row[i] = diff[t-1-i]
		}
		x = append(x, row)
		y = append(y, diff[t-1])
	}

	coef, stderr, err := olsMulti(x, y)
	if err != nil {
		return 0, err
	}
	if stderr[0] == 0 {
		return 0, ErrSingularMatrix
	}
	return coef[0] / stderr[0], nil
}

// egSurface maps the Engle-Granger tau statistic to an approximate p-value
// for the two-variable case with a constant in the first-stage regression.
// Anchors at 1%/5%/10% follow the MacKinnon critical values (-3.90, -3.34,
// -3.04); the remaining points are coarse interpolation anchors. Good enough
// to rank pairs and apply a 5-10% acceptance threshold, which is all the
// analyzer does with it.
var egSurface = []struct{ tau, p float64 }{
	{-5.00, 0.0001},
	{-4.40, 0.001},
	{-3.90, 0.01},
	{-3.34, 0.05},
	{-3.04, 0.10},
	{-2.71, 0.20},
	{-2.29, 0.40},
	{-1.85, 0.60},
	{-1.34, 0.80},
	{-0.50, 0.94},
	{0.50, 0.99},
}

// adfPValue converts a tau statistic into an approximate p-value by linear
// interpolation over the surface table.
func adfPValue(tau float64) float64 {
	if tau <= egSurface[0].tau {
		return egSurface[0].p
	}
	last := egSurface[len(egSurface)-1]
	if tau >= last.tau {
		return last.p
	}
	for i := 1; i < len(egSurface); i++ {
		lo, hi := egSurface[i-1], egSurface[i]
		if tau <= hi.tau {
			frac := (tau - lo.tau) / (hi.tau - lo.tau)
			return lo.p + frac*(hi.p-lo.p)
		}
	}
	return last.p
}
