package optimization

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Status is the termination reason reported by a Solver.
type Status string

const (
	StatusConverged        Status = "converged"
	StatusIterationLimit   Status = "iteration_limit"
	StatusLineSearchFailed Status = "line_search_failed"
	StatusNonFinite        Status = "non_finite"
	StatusInfeasible       Status = "infeasible"
)

// Problem is a smooth objective minimized over a FeasibleSet.
type Problem struct {
	Objective func(w []float64) float64
	Gradient  func(grad, w []float64)
	Set       *FeasibleSet
}

// SolverResult is the outcome of a Solve call. Weights is always feasible
// when Status is StatusConverged.
type SolverResult struct {
	Weights     []float64
	Value       float64
	Iterations  int
	Evaluations int
	Status      Status
	Message     string
}

// Converged reports whether the solver reached a stationary point.
func (r SolverResult) Converged() bool {
	return r.Status == StatusConverged
}

// Solver minimizes a Problem from a starting point. Implementations must be
// deterministic for a given problem and start and safe for concurrent use.
type Solver interface {
	Solve(ctx context.Context, p Problem, initial []float64) (SolverResult, error)
}

// SolverSettings tunes the projected gradient solver.
type SolverSettings struct {
	MaxIterations int
	// Tolerance bounds the sup-norm of the projected gradient step at a
	// stationary point.
	Tolerance float64
	// Memory is the window of past objective values used by the
	// non-monotone line search.
	Memory int
}

// DefaultSolverSettings returns the settings used when none are configured.
func DefaultSolverSettings() SolverSettings {
	return SolverSettings{
		MaxIterations: 5000,
		Tolerance:     1e-10,
		Memory:        10,
	}
}

const (
	alphaMin         = 1e-10
	alphaMax         = 1e10
	armijoGamma      = 1e-4
	sigmaLow         = 0.1
	sigmaHigh        = 0.9
	maxLineSearch    = 60
	stepTolerance    = 1e-13
	stagnationRelTol = 1e-6
	ctxCheckInterval = 32
)

// ProjectedGradient is a spectral projected gradient method (SPG2) with a
// non-monotone line search. Iterates are convex combinations of exact
// projections, so every returned point is feasible up to rounding and no
// renormalization is applied.
type ProjectedGradient struct {
	settings SolverSettings
}

// NewProjectedGradient creates the solver, filling unset settings with
// defaults.
func NewProjectedGradient(settings SolverSettings) *ProjectedGradient {
	def := DefaultSolverSettings()
	if settings.MaxIterations <= 0 {
		settings.MaxIterations = def.MaxIterations
	}
	if settings.Tolerance <= 0 {
		settings.Tolerance = def.Tolerance
	}
	if settings.Memory <= 0 {
		settings.Memory = def.Memory
	}
	return &ProjectedGradient{settings: settings}
}

// Settings returns the effective solver settings.
func (pg *ProjectedGradient) Settings() SolverSettings {
	return pg.settings
}

// Solve implements Solver.
func (pg *ProjectedGradient) Solve(ctx context.Context, p Problem, initial []float64) (SolverResult, error) {
	if p.Objective == nil || p.Gradient == nil || p.Set == nil {
		return SolverResult{}, fmt.Errorf("%w: problem needs an objective, a gradient and a feasible set", ErrInvalidInput)
	}
	n := p.Set.n
	if len(initial) != n {
		return SolverResult{}, fmt.Errorf("%w: initial point has %d weights, want %d", ErrInvalidInput, len(initial), n)
	}

	x := make([]float64, n)
	p.Set.Project(x, initial)
	g := make([]float64, n)
	xn := make([]float64, n)
	gn := make([]float64, n)
	d := make([]float64, n)
	buf := make([]float64, n)

	res := SolverResult{Weights: x}

	f := p.Objective(x)
	res.Evaluations = 1
	res.Value = f
	if !isFinite(f) {
		return finish(res, StatusNonFinite, "objective is not finite at the starting point"), nil
	}
	p.Gradient(g, x)
	if !allFinite(g) {
		return finish(res, StatusNonFinite, "gradient is not finite at the starting point"), nil
	}

	pgNorm := projectedGradientNorm(p.Set, x, g, buf)
	if pgNorm <= pg.settings.Tolerance {
		return finish(res, StatusConverged, "starting point is stationary"), nil
	}
	alpha := clip(1/pgNorm, alphaMin, alphaMax)

	history := []float64{f}

	for k := 1; k <= pg.settings.MaxIterations; k++ {
		res.Iterations = k
		if k%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}

		for i := range buf {
			buf[i] = x[i] - alpha*g[i]
		}
		p.Set.Project(buf, buf)
		floats.SubTo(d, buf, x)
		gtd := floats.Dot(g, d)

		if gtd >= 0 {
			if pgNorm <= stagnationTolerance(g) {
				return finish(res, StatusConverged, "stationary to working precision"), nil
			}
			return finish(res, StatusLineSearchFailed, fmt.Sprintf("no descent direction (projected gradient %.3e)", pgNorm)), nil
		}

		fmax := history[0]
		for _, v := range history[1:] {
			fmax = math.Max(fmax, v)
		}

		theta := 1.0
		fn := math.NaN()
		accepted := false
		for ls := 0; ls < maxLineSearch; ls++ {
			for i := range xn {
				xn[i] = x[i] + theta*d[i]
			}
			fn = p.Objective(xn)
			res.Evaluations++
			if !isFinite(fn) {
				theta *= 0.5
				continue
			}
			if fn <= fmax+armijoGamma*theta*gtd {
				accepted = true
				break
			}
			denom := fn - f - theta*gtd
			next := -0.5 * theta * theta * gtd / denom
			if denom > 0 && next >= sigmaLow*theta && next <= sigmaHigh*theta {
				theta = next
			} else {
				theta *= 0.5
			}
		}
		if !accepted {
			if pgNorm <= stagnationTolerance(g) {
				return finish(res, StatusConverged, "stationary to working precision"), nil
			}
			if !isFinite(fn) {
				return finish(res, StatusNonFinite, "objective is not finite along the search direction"), nil
			}
			return finish(res, StatusLineSearchFailed, fmt.Sprintf("line search failed after %d trials (projected gradient %.3e)", maxLineSearch, pgNorm)), nil
		}

		p.Gradient(gn, xn)
		if !allFinite(gn) {
			return finish(res, StatusNonFinite, "gradient is not finite"), nil
		}

		// s = xn - x and y = gn - g, reusing d and buf.
		floats.SubTo(d, xn, x)
		floats.SubTo(buf, gn, g)
		sts := floats.Dot(d, d)
		sty := floats.Dot(d, buf)
		step := floats.Norm(d, math.Inf(1))

		x, xn = xn, x
		g, gn = gn, g
		f = fn
		res.Weights = x
		res.Value = f

		history = append(history, f)
		if len(history) > pg.settings.Memory {
			history = history[1:]
		}

		pgNorm = projectedGradientNorm(p.Set, x, g, buf)
		if pgNorm <= pg.settings.Tolerance {
			return finish(res, StatusConverged, "projected gradient below tolerance"), nil
		}
		if step <= stepTolerance && pgNorm <= stagnationTolerance(g) {
			return finish(res, StatusConverged, "step below tolerance"), nil
		}

		if sty <= 0 {
			alpha = alphaMax
		} else {
			alpha = clip(sts/sty, alphaMin, alphaMax)
		}
	}

	return finish(res, StatusIterationLimit, fmt.Sprintf("iteration limit %d reached (projected gradient %.3e)", pg.settings.MaxIterations, pgNorm)), nil
}

func finish(res SolverResult, status Status, msg string) SolverResult {
	res.Status = status
	res.Message = msg
	w := make([]float64, len(res.Weights))
	copy(w, res.Weights)
	res.Weights = w
	return res
}

// projectedGradientNorm is ||P(x - g) - x||_inf, zero exactly at a
// stationary point of the constrained problem.
func projectedGradientNorm(set *FeasibleSet, x, g, buf []float64) float64 {
	floats.SubTo(buf, x, g)
	set.Project(buf, buf)
	floats.Sub(buf, x)
	return floats.Norm(buf, math.Inf(1))
}

func stagnationTolerance(g []float64) float64 {
	return stagnationRelTol * (1 + floats.Norm(g, math.Inf(1)))
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if !isFinite(x) {
			return false
		}
	}
	return true
}
