package optimization

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// statisticsFrom builds prepared statistics directly from annualized
// moments, for tests that do not need a price history.
func statisticsFrom(symbols []string, mu []float64, cov [][]float64) *Statistics {
	n := len(symbols)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, cov[i][j])
		}
	}
	return &Statistics{
		Symbols:      symbols,
		MeanReturns:  mu,
		Covariance:   sym,
		Observations: 500,
	}
}

func twoAssetStatistics() *Statistics {
	// sigma1 = 0.20, sigma2 = 0.25, rho = 0.3
	return statisticsFrom(
		[]string{"A", "B"},
		[]float64{0.12, 0.08},
		[][]float64{
			{0.04, 0.015},
			{0.015, 0.0625},
		},
	)
}

func threeAssetStatistics() *Statistics {
	return statisticsFrom(
		[]string{"A", "B", "C"},
		[]float64{0.12, 0.08, 0.10},
		[][]float64{
			{0.04, 0.01, 0.005},
			{0.01, 0.03, 0.008},
			{0.005, 0.008, 0.025},
		},
	)
}

func newTestSession(t *testing.T, stats *Statistics, c Constraints) *AnalysisSession {
	t.Helper()
	sess, err := NewSession(stats, SessionOptions{
		RiskFreeRate: 0.02,
		Constraints:  c,
		Workers:      4,
		Log:          zerolog.Nop(),
	})
	require.NoError(t, err)
	return sess
}

// syntheticPrices generates a deterministic daily price table for three
// assets with distinct drift and volatility and a shared factor.
func syntheticPrices(days int, seed uint64) PriceMatrix {
	rng := rand.New(rand.NewPCG(seed, 7))
	symbols := []string{"AAA", "BBB", "CCC"}
	drift := []float64{0.0006, 0.0003, 0.0004}
	vol := []float64{0.015, 0.010, 0.012}
	loading := []float64{0.6, 0.3, -0.2}

	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, days)
	prices := make([][]float64, days)
	last := []float64{100, 50, 75}
	for d := 0; d < days; d++ {
		dates[d] = start.AddDate(0, 0, d)
		row := make([]float64, len(symbols))
		if d == 0 {
			copy(row, last)
		} else {
			market := rng.NormFloat64()
			for j := range row {
				idio := rng.NormFloat64()
				r := drift[j] + vol[j]*(loading[j]*market+math.Sqrt(1-loading[j]*loading[j])*idio)
				row[j] = last[j] * (1 + r)
			}
		}
		copy(last, row)
		prices[d] = row
	}
	return PriceMatrix{Symbols: symbols, Dates: dates, Prices: prices}
}

func sum(w []float64) float64 {
	return floats.Sum(w)
}

func weightsOf(r *OptimizationResult, symbols []string) []float64 {
	w := make([]float64, len(symbols))
	for i, s := range symbols {
		w[i] = r.Weights[s]
	}
	return w
}
