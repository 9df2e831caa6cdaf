package optimization

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/frontier/pkg/formulas"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// HighCorrelationThreshold is the |correlation| above which a pair is
// reported as highly correlated.
const HighCorrelationThreshold = 0.80

// Correlate computes the Pearson correlation matrix of the columns of
// returns. The diagonal is exactly 1, entries are clamped to [-1, 1] and a
// zero-variance asset correlates 0 with every other asset.
func Correlate(returns mat.Matrix, symbols []string) (*CorrelationMatrix, error) {
	rows, n := returns.Dims()
	if n != len(symbols) {
		return nil, fmt.Errorf("%w: %d return columns for %d symbols", ErrInvalidInput, n, len(symbols))
	}
	if rows < 2 {
		return nil, &InsufficientDataError{Observations: rows, Required: 2}
	}

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, returns, nil)

	sd := make([]float64, n)
	for i := range sd {
		sd[i] = math.Sqrt(math.Max(cov.At(i, i), 0))
	}

	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		matrix[i][i] = 1
		for j := i + 1; j < n; j++ {
			rho := 0.0
			if sd[i] > 0 && sd[j] > 0 {
				rho = clip(cov.At(i, j)/(sd[i]*sd[j]), -1, 1)
			}
			if math.IsNaN(rho) {
				rho = 0
			}
			matrix[i][j] = rho
			matrix[j][i] = rho
		}
	}

	syms := make([]string, n)
	copy(syms, symbols)
	return &CorrelationMatrix{
		Symbols:          syms,
		Matrix:           matrix,
		HighCorrelations: highCorrelationPairs(syms, matrix, HighCorrelationThreshold),
	}, nil
}

func highCorrelationPairs(symbols []string, matrix [][]float64, threshold float64) []CorrelationPair {
	pairs := []CorrelationPair{}
	for i := range matrix {
		for j := i + 1; j < len(matrix); j++ {
			if math.Abs(matrix[i][j]) >= threshold {
				pairs = append(pairs, CorrelationPair{
					Symbol1:     symbols[i],
					Symbol2:     symbols[j],
					Correlation: matrix[i][j],
				})
			}
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		return math.Abs(pairs[a].Correlation) > math.Abs(pairs[b].Correlation)
	})
	return pairs
}

// Correlation returns the correlation matrix of the session's returns.
func (s *AnalysisSession) Correlation() (*CorrelationMatrix, error) {
	return Correlate(s.stats.Returns, s.stats.Symbols)
}

// VaRConfidenceLevels are the confidence levels reported per asset.
var VaRConfidenceLevels = []float64{0.95, 0.99}

// volatilityWindows are the trailing windows, in returns, of the windowed
// volatilities.
var volatilityWindows = [3]int{30, 90, 180}

// AssetStatistics returns each asset's own expected return, volatility,
// Sharpe ratio and maximum drawdown over the aligned window, plus tail
// risk and trailing volatilities from its daily returns.
func (s *AnalysisSession) AssetStatistics() []AssetStatistics {
	out := make([]AssetStatistics, s.model.n)
	var prices []float64
	if s.stats.Prices != nil {
		rows, _ := s.stats.Prices.Dims()
		prices = make([]float64, rows)
	}
	var returns []float64
	if s.stats.Returns != nil {
		rows, _ := s.stats.Returns.Dims()
		returns = make([]float64, rows)
	}
	for i, sym := range s.stats.Symbols {
		ret := s.model.mu[i]
		vol := formulas.VolatilityFromVariance(s.model.cov.At(i, i))
		out[i] = AssetStatistics{
			Symbol:         sym,
			ExpectedReturn: ret,
			Volatility:     vol,
			SharpeRatio:    s.model.sharpe(ret, vol),
		}
		if prices != nil {
			mat.Col(prices, i, s.stats.Prices)
			out[i].MaxDrawdown = formulas.CalculateMaxDrawdown(prices)
		}
		if len(returns) >= 2 {
			mat.Col(returns, i, s.stats.Returns)
			addReturnRisk(&out[i], returns)
		}
	}
	return out
}

func addReturnRisk(a *AssetStatistics, returns []float64) {
	windowed := [3]**float64{&a.Volatility30d, &a.Volatility90d, &a.Volatility180d}
	for k, window := range volatilityWindows {
		if vol, ok := formulas.WindowVolatility(returns, window); ok {
			*windowed[k] = &vol
		}
	}

	a.ValueAtRisk = make([]ValueAtRisk, len(VaRConfidenceLevels))
	for k, c := range VaRConfidenceLevels {
		a.ValueAtRisk[k] = ValueAtRisk{
			Confidence:        c,
			Parametric:        formulas.ParametricVaR(returns, c),
			Historical:        formulas.HistoricalVaR(returns, c),
			ExpectedShortfall: formulas.ExpectedShortfall(returns, c),
		}
	}
}
