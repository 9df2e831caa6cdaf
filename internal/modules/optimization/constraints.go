package optimization

import (
	"fmt"
	"math"
)

// feasibilityTolerance absorbs rounding when checking that the bounded
// simplex is non-empty.
const feasibilityTolerance = 1e-12

// Constraints are uniform weight bounds applied to every asset.
type Constraints struct {
	MinWeight float64 `json:"min_weight" msgpack:"min_weight"`
	MaxWeight float64 `json:"max_weight" msgpack:"max_weight"`
}

// DefaultConstraints allows any long-only, fully invested portfolio.
func DefaultConstraints() Constraints {
	return Constraints{MinWeight: 0, MaxWeight: 1}
}

// Validate checks the bounds and that {min <= w_i <= max, sum(w) = 1} is
// non-empty for n assets.
func (c Constraints) Validate(n int) error {
	if math.IsNaN(c.MinWeight) || math.IsNaN(c.MaxWeight) {
		return fmt.Errorf("%w: weight bounds must be numbers", ErrInvalidInput)
	}
	if c.MinWeight < 0 || c.MinWeight > 1 {
		return fmt.Errorf("%w: min_weight %g outside [0, 1]", ErrInvalidInput, c.MinWeight)
	}
	if c.MaxWeight < 0 || c.MaxWeight > 1 {
		return fmt.Errorf("%w: max_weight %g outside [0, 1]", ErrInvalidInput, c.MaxWeight)
	}
	if c.MinWeight > c.MaxWeight {
		return fmt.Errorf("%w: min_weight %g exceeds max_weight %g", ErrInfeasibleConstraints, c.MinWeight, c.MaxWeight)
	}
	if n < 1 {
		return fmt.Errorf("%w: no assets", ErrInvalidInput)
	}
	if c.MinWeight*float64(n) > 1+feasibilityTolerance {
		return fmt.Errorf("%w: min_weight %g x %d assets exceeds 1", ErrInfeasibleConstraints, c.MinWeight, n)
	}
	if c.MaxWeight*float64(n) < 1-feasibilityTolerance {
		return fmt.Errorf("%w: max_weight %g x %d assets is below 1", ErrInfeasibleConstraints, c.MaxWeight, n)
	}
	return nil
}

// Contains reports whether w satisfies the bounds and the budget within tol.
func (c Constraints) Contains(w []float64, tol float64) bool {
	sum := 0.0
	for _, v := range w {
		if v < c.MinWeight-tol || v > c.MaxWeight+tol {
			return false
		}
		sum += v
	}
	return math.Abs(sum-1) <= tol
}

// equalWeights is the deterministic starting point for every mode.
func equalWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}
