package optimization

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// DefaultFrontierPoints is the frontier resolution used by full analyses.
const DefaultFrontierPoints = 50

// EfficientFrontier sweeps numPoints equally spaced target returns from the
// minimum-variance return to the highest single-asset mean return and
// solves each one in parallel. Unattainable targets are dropped, so the
// result may hold fewer points than requested. The two anchor portfolios
// are always included; an anchor failure is returned as an error.
func (s *AnalysisSession) EfficientFrontier(ctx context.Context, numPoints int) (*Frontier, error) {
	if numPoints < 1 {
		return nil, fmt.Errorf("%w: num_points must be positive, got %d", ErrInvalidInput, numPoints)
	}

	minVar, err := s.MinVariance(ctx)
	if err != nil {
		return nil, fmt.Errorf("frontier min variance anchor: %w", err)
	}
	maxSharpe, err := s.MaxSharpe(ctx)
	if err != nil {
		return nil, fmt.Errorf("frontier max sharpe anchor: %w", err)
	}
	return s.frontierFrom(ctx, minVar, maxSharpe, numPoints)
}

// frontierFrom sweeps the targets above an already solved minimum-variance
// anchor. maxSharpe may be nil.
func (s *AnalysisSession) frontierFrom(ctx context.Context, minVar, maxSharpe *OptimizationResult, numPoints int) (*Frontier, error) {
	if numPoints < 1 {
		return nil, fmt.Errorf("%w: num_points must be positive, got %d", ErrInvalidInput, numPoints)
	}

	targets := frontierTargets(minVar.ExpectedReturn, floats.Max(s.model.mu), numPoints)
	results := make([]*OptimizationResult, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, target := range targets {
		g.Go(func() error {
			res, err := s.TargetReturn(gctx, target)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("frontier sweep: %w", err)
	}

	f := &Frontier{
		Returns:              make([]float64, 0, len(targets)),
		Volatilities:         make([]float64, 0, len(targets)),
		SharpeRatios:         make([]*float64, 0, len(targets)),
		Weights:              make([]map[string]float64, 0, len(targets)),
		TargetReturns:        make([]float64, 0, len(targets)),
		MinVariancePortfolio: minVar,
		MaxSharpePortfolio:   maxSharpe,
		RequestedPoints:      numPoints,
	}
	dropped := 0
	for i, res := range results {
		if !res.Success {
			dropped++
			continue
		}
		f.points = append(f.points, FrontierPoint{Target: targets[i], Result: res})
		f.Returns = append(f.Returns, res.ExpectedReturn)
		f.Volatilities = append(f.Volatilities, res.Volatility)
		f.SharpeRatios = append(f.SharpeRatios, res.SharpeRatio)
		f.Weights = append(f.Weights, res.Weights)
		f.TargetReturns = append(f.TargetReturns, targets[i])
	}
	f.NumPoints = len(f.points)

	s.log.Debug().
		Int("requested", numPoints).
		Int("solved", f.NumPoints).
		Int("dropped", dropped).
		Msg("Efficient frontier generated")

	return f, nil
}

// frontierTargets returns n equally spaced values over [lo, hi] inclusive.
func frontierTargets(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	targets := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range targets {
		targets[i] = lo + step*float64(i)
	}
	targets[n-1] = hi
	return targets
}
