package formulas

import "math"

// DegenerateVolatility is the volatility at or below which a Sharpe ratio
// is considered undefined.
const DegenerateVolatility = 1e-12

// SharpeRatio calculates (return - riskFreeRate) / volatility for already
// annualized inputs.
//
// Returns nil when volatility is degenerate or any input is not finite, so
// callers never see NaN or Inf.
func SharpeRatio(expectedReturn, riskFreeRate, volatility float64) *float64 {
	if volatility <= DegenerateVolatility || !isFinite(volatility) {
		return nil
	}
	if !isFinite(expectedReturn) || !isFinite(riskFreeRate) {
		return nil
	}

	sharpe := (expectedReturn - riskFreeRate) / volatility
	if !isFinite(sharpe) {
		return nil
	}
	return &sharpe
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
