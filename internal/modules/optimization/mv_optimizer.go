package optimization

import (
	"context"
	"errors"
	"fmt"
)

// feasibilityCheckTolerance is the tolerance on sum and bounds that a
// converged solution must meet before it is reported as a success.
const feasibilityCheckTolerance = 1e-6

// Optimize dispatches to the requested mode. target is required for
// ModeTargetReturn and ignored otherwise.
func (s *AnalysisSession) Optimize(ctx context.Context, mode Mode, target *float64) (*OptimizationResult, error) {
	switch mode {
	case ModeMaxSharpe:
		return s.MaxSharpe(ctx)
	case ModeMinVariance:
		return s.MinVariance(ctx)
	case ModeTargetReturn:
		if target == nil {
			return nil, fmt.Errorf("%w: target_return is required for mode %s", ErrInvalidInput, mode)
		}
		return s.TargetReturn(ctx, *target)
	default:
		return nil, fmt.Errorf("%w: unknown optimization mode %q", ErrInvalidInput, mode)
	}
}

// MaxSharpe finds the portfolio with the highest Sharpe ratio. A solver
// failure is returned as *OptimizationError.
func (s *AnalysisSession) MaxSharpe(ctx context.Context) (*OptimizationResult, error) {
	res, err := s.solver.Solve(ctx, s.model.negativeSharpeProblem(s.set), equalWeights(s.model.n))
	if err != nil {
		return nil, fmt.Errorf("max sharpe solve: %w", err)
	}
	return s.fatalResult(ModeMaxSharpe, res)
}

// MinVariance finds the global minimum-variance portfolio. A solver failure
// is returned as *OptimizationError.
func (s *AnalysisSession) MinVariance(ctx context.Context) (*OptimizationResult, error) {
	res, err := s.solver.Solve(ctx, s.model.varianceProblem(s.set), equalWeights(s.model.n))
	if err != nil {
		return nil, fmt.Errorf("min variance solve: %w", err)
	}
	return s.fatalResult(ModeMinVariance, res)
}

// TargetReturn finds the minimum-volatility portfolio whose expected return
// equals target. An unattainable target or a solver failure is reported as
// a result with Success false, not as an error; errors are reserved for
// invalid input and cancellation.
func (s *AnalysisSession) TargetReturn(ctx context.Context, target float64) (*OptimizationResult, error) {
	t := target
	set, err := s.set.WithTargetReturn(s.model.mu, target)
	if err != nil {
		if errors.Is(err, ErrInfeasibleConstraints) {
			return s.infeasibleResult(t, StatusInfeasible, err.Error(), 0), nil
		}
		return nil, err
	}

	res, err := s.solver.Solve(ctx, s.model.varianceProblem(set), equalWeights(s.model.n))
	if err != nil {
		return nil, fmt.Errorf("target return solve: %w", err)
	}
	if !res.Converged() {
		s.log.Debug().
			Float64("target", target).
			Str("status", string(res.Status)).
			Str("message", res.Message).
			Msg("Target return optimization did not converge")
		return s.infeasibleResult(t, res.Status, res.Message, res.Iterations), nil
	}
	if !set.Contains(res.Weights, feasibilityCheckTolerance) {
		return s.infeasibleResult(t, StatusInfeasible, "solution violates constraints", res.Iterations), nil
	}

	out := s.newResult(ModeTargetReturn, res)
	out.TargetReturn = &t
	return out, nil
}

func (s *AnalysisSession) fatalResult(mode Mode, res SolverResult) (*OptimizationResult, error) {
	if !res.Converged() {
		s.log.Warn().
			Str("mode", string(mode)).
			Str("status", string(res.Status)).
			Int("iterations", res.Iterations).
			Msg(res.Message)
		return nil, &OptimizationError{Mode: mode, Status: res.Status, Message: res.Message}
	}
	if !s.set.Contains(res.Weights, feasibilityCheckTolerance) {
		return nil, &OptimizationError{Mode: mode, Status: StatusInfeasible, Message: "solution violates constraints"}
	}
	return s.newResult(mode, res), nil
}

func (s *AnalysisSession) newResult(mode Mode, res SolverResult) *OptimizationResult {
	st := s.model.stats(res.Weights)
	return &OptimizationResult{
		Type:           mode,
		Weights:        s.weightMap(res.Weights),
		ExpectedReturn: st.ExpectedReturn,
		Volatility:     st.Volatility,
		SharpeRatio:    st.SharpeRatio,
		Success:        true,
		Iterations:     res.Iterations,
		weights:        res.Weights,
		symbols:        s.stats.Symbols,
	}
}

func (s *AnalysisSession) infeasibleResult(target float64, status Status, msg string, iterations int) *OptimizationResult {
	return &OptimizationResult{
		Type:         ModeTargetReturn,
		TargetReturn: &target,
		Weights:      map[string]float64{},
		Success:      false,
		Message:      fmt.Sprintf("%s: %s", status, msg),
		Iterations:   iterations,
		symbols:      s.stats.Symbols,
	}
}
