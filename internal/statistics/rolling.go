package statistics

import (
	"math"

	"github.com/montanaflynn/stats"
)

// MeanStd returns the mean and sample standard deviation of a series.
func MeanStd(series []float64) (mean, std float64, err error) {
	if len(series) < 2 {
		return 0, 0, ErrInsufficientData
	}
	mean, err = stats.Mean(series)
	if err != nil {
		return 0, 0, err
	}
	std, err = stats.StandardDeviationSample(series)
	if err != nil {
		return 0, 0, err
	}
	return mean, std, nil
}

// RollingZScore returns the z-score of the last observation against the mean
// and sample standard deviation of the trailing window. The second return is
// false when the series is shorter than the window or the window has zero
// variance, matching the undefined leading region of a rolling statistic.
func RollingZScore(series []float64, window int) (float64, bool) {
	if window < 2 || len(series) < window {
		return 0, false
	}
	tail := series[len(series)-window:]
	mean, std, err := MeanStd(tail)
	if err != nil || std == 0 || math.IsNaN(std) {
		return 0, false
	}
	return (tail[len(tail)-1] - mean) / std, true
}
