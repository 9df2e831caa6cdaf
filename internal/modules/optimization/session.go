package optimization

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// SessionOptions configures an AnalysisSession.
type SessionOptions struct {
	RiskFreeRate float64
	Constraints  Constraints
	Solver       Solver // nil uses the projected gradient solver with defaults
	// Workers bounds the goroutines used by frontier and Monte Carlo runs.
	Workers int
	// MonteCarloRespectBounds projects random portfolios onto the
	// constrained region instead of sampling the whole simplex.
	MonteCarloRespectBounds bool
	Log                     zerolog.Logger
}

// AnalysisSession binds prepared statistics to a risk-free rate and weight
// constraints. It is immutable after construction and safe for concurrent
// use; every method returns new values.
type AnalysisSession struct {
	stats         *Statistics
	model         *portfolioModel
	riskFreeRate  float64
	constraints   Constraints
	set           *FeasibleSet
	solver        Solver
	workers       int
	respectBounds bool
	log           zerolog.Logger
}

// NewSession validates the constraints against the universe size and
// builds a session. An empty feasible region fails here, before any solve.
func NewSession(stats *Statistics, opts SessionOptions) (*AnalysisSession, error) {
	if stats == nil || stats.Covariance == nil {
		return nil, fmt.Errorf("%w: session needs prepared statistics", ErrInvalidInput)
	}
	n := stats.NumAssets()
	if n < MinAssets {
		return nil, &InsufficientAssetsError{Have: n, Need: MinAssets}
	}
	if len(stats.MeanReturns) != n || stats.Covariance.SymmetricDim() != n {
		return nil, fmt.Errorf("%w: statistics dimensions disagree", ErrInvalidInput)
	}
	if !isFinite(opts.RiskFreeRate) {
		return nil, fmt.Errorf("%w: risk-free rate must be finite", ErrInvalidInput)
	}
	if err := opts.Constraints.Validate(n); err != nil {
		return nil, err
	}

	solver := opts.Solver
	if solver == nil {
		solver = NewProjectedGradient(DefaultSolverSettings())
	}
	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	return &AnalysisSession{
		stats:         stats,
		model:         newPortfolioModel(stats.MeanReturns, stats.Covariance, opts.RiskFreeRate),
		riskFreeRate:  opts.RiskFreeRate,
		constraints:   opts.Constraints,
		set:           NewFeasibleSet(n, opts.Constraints),
		solver:        solver,
		workers:       workers,
		respectBounds: opts.MonteCarloRespectBounds,
		log:           opts.Log.With().Str("component", "analysis_session").Logger(),
	}, nil
}

// WithConstraints returns a session over the same statistics with new
// weight bounds.
func (s *AnalysisSession) WithConstraints(c Constraints) (*AnalysisSession, error) {
	return NewSession(s.stats, SessionOptions{
		RiskFreeRate:            s.riskFreeRate,
		Constraints:             c,
		Solver:                  s.solver,
		Workers:                 s.workers,
		MonteCarloRespectBounds: s.respectBounds,
		Log:                     s.log,
	})
}

// Symbols returns the asset order of every vector and matrix.
func (s *AnalysisSession) Symbols() []string {
	out := make([]string, len(s.stats.Symbols))
	copy(out, s.stats.Symbols)
	return out
}

// NumAssets returns N.
func (s *AnalysisSession) NumAssets() int { return s.model.n }

// MeanReturns returns a copy of the annualized mean return vector.
func (s *AnalysisSession) MeanReturns() []float64 {
	out := make([]float64, len(s.stats.MeanReturns))
	copy(out, s.stats.MeanReturns)
	return out
}

// Covariance returns a copy of the annualized covariance matrix.
func (s *AnalysisSession) Covariance() *mat.SymDense {
	out := mat.NewSymDense(s.model.n, nil)
	out.CopySym(s.stats.Covariance)
	return out
}

// Returns returns a copy of the daily return matrix.
func (s *AnalysisSession) Returns() *mat.Dense {
	return mat.DenseCopyOf(s.stats.Returns)
}

// Observations is the number of return rows behind the estimates.
func (s *AnalysisSession) Observations() int { return s.stats.Observations }

// Statistics returns the prepared statistics. Callers must not modify them.
func (s *AnalysisSession) Statistics() *Statistics { return s.stats }

// RiskFreeRate is the annualized rate used in every Sharpe ratio.
func (s *AnalysisSession) RiskFreeRate() float64 { return s.riskFreeRate }

// Constraints returns the session's weight bounds.
func (s *AnalysisSession) Constraints() Constraints { return s.constraints }

// Stats returns expected return, volatility and Sharpe ratio of w. The
// Sharpe ratio is nil when volatility is degenerate.
func (s *AnalysisSession) Stats(w []float64) (PortfolioStats, error) {
	if len(w) != s.model.n {
		return PortfolioStats{}, fmt.Errorf("%w: %d weights for %d assets", ErrInvalidInput, len(w), s.model.n)
	}
	return s.model.stats(w), nil
}

// weightMap keys w by symbol.
func (s *AnalysisSession) weightMap(w []float64) map[string]float64 {
	out := make(map[string]float64, len(w))
	for i, sym := range s.stats.Symbols {
		out[sym] = w[i]
	}
	return out
}
