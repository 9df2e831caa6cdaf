// Package formulas holds the small financial formulas shared by the
// optimizer and the reporting code.
package formulas

import (
	"math"
)

// TradingDaysPerYear is the annualization factor for daily data.
const TradingDaysPerYear = 252

// CalculateReturns converts prices to simple percentage returns.
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// AnnualizeMean scales a daily mean return to an annual one.
func AnnualizeMean(daily float64) float64 {
	return daily * TradingDaysPerYear
}

// AnnualizeVariance scales a daily (co)variance to an annual one.
func AnnualizeVariance(daily float64) float64 {
	return daily * TradingDaysPerYear
}

// VolatilityFromVariance returns sqrt(variance), treating tiny negative
// values produced by rounding as zero.
func VolatilityFromVariance(variance float64) float64 {
	if variance <= 0 || math.IsNaN(variance) {
		return 0
	}
	return math.Sqrt(variance)
}
