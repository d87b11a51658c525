// Package statistics implements the small amount of econometrics the
// stat-arb pipeline needs: ordinary least squares, an augmented
// Dickey-Fuller test and the Engle-Granger cointegration procedure.
package statistics

import (
	"errors"
	"math"
)

var (
	// ErrInsufficientData is returned when a series is too short for the
	// requested computation.
	ErrInsufficientData = errors.New("statistics: insufficient data")
	// ErrSingularMatrix is returned when a regression design matrix is
	// not invertible.
	ErrSingularMatrix = errors.New("statistics: singular design matrix")
)

// OLSResult holds the outcome of a simple linear regression y = alpha + beta*x.
type OLSResult struct {
	Alpha     float64
	Beta      float64
	Residuals []float64
}

// OLS fits y = alpha + beta*x by ordinary least squares.
func OLS(x, y []float64) (*OLSResult, error) {
	n := len(x)
	if n != len(y) {
		return nil, errors.New("statistics: series length mismatch")
	}
	if n < 3 {
		return nil, ErrInsufficientData
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var sxx, sxy float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		sxx += dx * dx
		sxy += dx * (y[i] - meanY)
	}
	if sxx == 0 {
		return nil, ErrSingularMatrix
	}

	beta := sxy / sxx
	alpha := meanY - beta*meanX

	residuals := make([]float64, n)
	for i := 0; i < n; i++ {
		residuals[i] = y[i] - alpha - beta*x[i]
	}

	return &OLSResult{Alpha: alpha, Beta: beta, Residuals: residuals}, nil
}

// olsMulti fits y = X*b by least squares via the normal equations and
// returns the coefficients and their standard errors. The design matrix is
// row-major: x[i] is one observation. Only used for tiny regressor counts
// (the ADF regression has two), so Gauss-Jordan on X'X is plenty.
func olsMulti(x [][]float64, y []float64) (coef, stderr []float64, err error) {
	m := len(x)
	if m == 0 || m != len(y) {
		return nil, nil, ErrInsufficientData
	}
	k := len(x[0])
	if m <= k {
		return nil, nil, ErrInsufficientData
	}

	// X'X and X'y
	xtx := make([][]float64, k)
	xty := make([]float64, k)
	for i := range xtx {
		xtx[i] = make([]float64, k)
	}
	for _, row := range x {
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				xtx[i][j] += row[i] * row[j]
			}
		}
	}
	for t, row := range x {
		for i := 0; i < k; i++ {
			xty[i] += row[i] * y[t]
		}
	}

	inv, err := invertMatrix(xtx)
	if err != nil {
		return nil, nil, err
	}

	coef = make([]float64, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			coef[i] += inv[i][j] * xty[j]
		}
	}

	// Residual variance and coefficient standard errors.
	var ssr float64
	for t, row := range x {
		fitted := 0.0
		for i := 0; i < k; i++ {
			fitted += row[i] * coef[i]
		}
		d := y[t] - fitted
		ssr += d * d
	}
	sigma2 := ssr / float64(m-k)

	stderr = make([]float64, k)
	for i := 0; i < k; i++ {
		stderr[i] = math.Sqrt(sigma2 * inv[i][i])
	}
	return coef, stderr, nil
}

// invertMatrix inverts a small square matrix by Gauss-Jordan elimination
// with partial pivoting.
func invertMatrix(a [][]float64) ([][]float64, error) {
	n := len(a)
	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], a[i])
		aug[i][n+i] = 1
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(aug[pivot][col]) < 1e-12 {
			return nil, ErrSingularMatrix
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		pv := aug[col][col]
		for j := 0; j < 2*n; j++ {
			aug[col][j] /= pv
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := aug[r][col]
			if factor == 0 {
				continue
			}
			for j := 0; j < 2*n; j++ {
				aug[r][j] -= factor * aug[col][j]
			}
		}
	}

	inv := make([][]float64, n)
	for i := 0; i < n; i++ {
		inv[i] = make([]float64, n)
		copy(inv[i], aug[i][n:])
	}
	return inv, nil
}
