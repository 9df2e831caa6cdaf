package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// tailCount is the number of worst observations in the (1 - confidence)
// tail, at least one. The small slack keeps 1-0.95 from rounding up.
func tailCount(n int, confidence float64) int {
	count := int(math.Ceil(float64(n)*(1-confidence) - 1e-9))
	if count < 1 {
		count = 1
	}
	if count > n {
		count = n
	}
	return count
}

func sortedCopy(returns []float64) []float64 {
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)
	return sorted
}

// HistoricalVaR is the one-period Value at Risk read from the empirical
// return distribution, as a positive loss fraction.
func HistoricalVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := sortedCopy(returns)
	return -sorted[tailCount(len(sorted), confidence)-1]
}

// ParametricVaR is the one-period Value at Risk assuming normally
// distributed returns with the sample mean and standard deviation.
func ParametricVaR(returns []float64, confidence float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	z := distuv.UnitNormal.Quantile(1 - confidence)
	return -(mean + z*std)
}

// ExpectedShortfall (CVaR) is the mean loss over the worst (1 - confidence)
// share of returns, as a positive loss fraction.
func ExpectedShortfall(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := sortedCopy(returns)
	return -stat.Mean(sorted[:tailCount(len(sorted), confidence)], nil)
}

// WindowVolatility annualizes the standard deviation of the last window
// returns. ok is false when fewer than window returns are available.
func WindowVolatility(returns []float64, window int) (vol float64, ok bool) {
	if window < 2 || len(returns) < window {
		return 0, false
	}
	std := stat.StdDev(returns[len(returns)-window:], nil)
	return std * math.Sqrt(TradingDaysPerYear), true
}
