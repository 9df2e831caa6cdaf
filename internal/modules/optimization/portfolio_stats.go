package optimization

import (
	"math"

	"github.com/aristath/frontier/pkg/formulas"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// minVarianceFloor keeps the Sharpe objective differentiable near a
// zero-volatility portfolio.
const minVarianceFloor = 1e-16

// relativeDegenerateVolatility scales the largest asset volatility into the
// cutoff below which a portfolio Sharpe ratio is reported as undefined.
const relativeDegenerateVolatility = 1e-6

// portfolioModel evaluates portfolio figures against fixed statistics.
// It holds no mutable state and is shared across goroutines.
type portfolioModel struct {
	n            int
	mu           []float64
	cov          *mat.SymDense
	riskFreeRate float64
	sharpeFloor  float64 // volatility at or below which Sharpe is nil
}

func newPortfolioModel(mu []float64, cov *mat.SymDense, riskFreeRate float64) *portfolioModel {
	n := len(mu)
	largest := 0.0
	for i := 0; i < n; i++ {
		largest = math.Max(largest, cov.At(i, i))
	}
	return &portfolioModel{
		n:            n,
		mu:           mu,
		cov:          cov,
		riskFreeRate: riskFreeRate,
		sharpeFloor:  math.Max(formulas.DegenerateVolatility, relativeDegenerateVolatility*math.Sqrt(largest)),
	}
}

func (m *portfolioModel) expectedReturn(w []float64) float64 {
	return floats.Dot(m.mu, w)
}

func (m *portfolioModel) variance(w []float64) float64 {
	v := mat.NewVecDense(m.n, w)
	return mat.Inner(v, m.cov, v)
}

// covTimes writes cov * w into dst.
func (m *portfolioModel) covTimes(dst, w []float64) {
	out := mat.NewVecDense(m.n, dst)
	out.MulVec(m.cov, mat.NewVecDense(m.n, w))
}

func (m *portfolioModel) stats(w []float64) PortfolioStats {
	ret := m.expectedReturn(w)
	vol := formulas.VolatilityFromVariance(m.variance(w))
	return PortfolioStats{
		ExpectedReturn: ret,
		Volatility:     vol,
		SharpeRatio:    m.sharpe(ret, vol),
	}
}

// sharpe is nil for a portfolio that is riskless relative to its assets.
func (m *portfolioModel) sharpe(ret, vol float64) *float64 {
	if vol <= m.sharpeFloor {
		return nil
	}
	return formulas.SharpeRatio(ret, m.riskFreeRate, vol)
}

// varianceProblem is w'Cw with gradient 2Cw. Minimizing variance has the
// same minimizer as minimizing volatility and is better conditioned.
func (m *portfolioModel) varianceProblem(set *FeasibleSet) Problem {
	return Problem{
		Objective: m.variance,
		Gradient: func(grad, w []float64) {
			m.covTimes(grad, w)
			floats.Scale(2, grad)
		},
		Set: set,
	}
}

// negativeSharpeProblem is -(mu.w - rf) / sigma(w).
func (m *portfolioModel) negativeSharpeProblem(set *FeasibleSet) Problem {
	return Problem{
		Objective: func(w []float64) float64 {
			sigma := math.Sqrt(math.Max(m.variance(w), minVarianceFloor))
			return -(m.expectedReturn(w) - m.riskFreeRate) / sigma
		},
		Gradient: func(grad, w []float64) {
			m.covTimes(grad, w)
			variance := floats.Dot(w, grad)
			excess := m.expectedReturn(w) - m.riskFreeRate
			if variance < minVarianceFloor {
				sigma := math.Sqrt(minVarianceFloor)
				for i := range grad {
					grad[i] = -m.mu[i] / sigma
				}
				return
			}
			sigma := math.Sqrt(variance)
			sigma3 := variance * sigma
			for i := range grad {
				grad[i] = -m.mu[i]/sigma + excess*grad[i]/sigma3
			}
		},
		Set: set,
	}
}
