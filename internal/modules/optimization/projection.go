package optimization

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const (
	// targetClampTolerance lets a target that sits just outside the
	// attainable return range be treated as its nearest endpoint.
	targetClampTolerance = 1e-9
	// maxMultiplier bounds the search for the return-constraint multiplier.
	maxMultiplier = 1e12
	maxBisections = 200
)

// FeasibleSet is {lower <= w_i <= upper, sum(w) = 1}, optionally
// intersected with {returns . w = target}. Project computes the exact
// Euclidean projection onto it.
type FeasibleSet struct {
	n            int
	lower, upper float64

	returns   []float64
	target    float64
	hasTarget bool
}

// NewFeasibleSet builds the bounded simplex for n assets. The constraints
// must already be validated.
func NewFeasibleSet(n int, c Constraints) *FeasibleSet {
	return &FeasibleSet{n: n, lower: c.MinWeight, upper: c.MaxWeight}
}

// ReturnRange returns the smallest and largest returns . w attainable on the
// bounded simplex.
func (s *FeasibleSet) ReturnRange(returns []float64) (float64, float64) {
	return s.attainableReturn(returns, false), s.attainableReturn(returns, true)
}

// WithTargetReturn adds the equality returns . w = target. A target outside
// the attainable range yields ErrInfeasibleConstraints.
func (s *FeasibleSet) WithTargetReturn(returns []float64, target float64) (*FeasibleSet, error) {
	if len(returns) != s.n {
		return nil, fmt.Errorf("%w: %d returns for %d assets", ErrInvalidInput, len(returns), s.n)
	}
	if !isFinite(target) {
		return nil, fmt.Errorf("%w: target return must be finite", ErrInvalidInput)
	}

	rmin, rmax := s.ReturnRange(returns)
	tol := targetClampTolerance * (1 + math.Abs(target))
	if target < rmin-tol || target > rmax+tol {
		return nil, fmt.Errorf("%w: target return %.6f outside attainable range [%.6f, %.6f]",
			ErrInfeasibleConstraints, target, rmin, rmax)
	}
	target = math.Min(math.Max(target, rmin), rmax)

	mu := make([]float64, s.n)
	copy(mu, returns)
	return &FeasibleSet{
		n:         s.n,
		lower:     s.lower,
		upper:     s.upper,
		returns:   mu,
		target:    target,
		hasTarget: true,
	}, nil
}

// Project writes the projection of v into dst. dst and v may alias.
func (s *FeasibleSet) Project(dst, v []float64) {
	if !s.hasTarget {
		projectBoxSimplex(dst, v, s.lower, s.upper, nil)
		return
	}
	s.projectWithTarget(dst, v)
}

// Contains reports whether w lies in the set within tol.
func (s *FeasibleSet) Contains(w []float64, tol float64) bool {
	c := Constraints{MinWeight: s.lower, MaxWeight: s.upper}
	if !c.Contains(w, tol) {
		return false
	}
	if s.hasTarget && math.Abs(floats.Dot(s.returns, w)-s.target) > tol*(1+math.Abs(s.target)) {
		return false
	}
	return true
}

// projectWithTarget finds the multiplier lambda of the return equality so
// that w(lambda) = P_box-simplex(v - lambda*mu) meets the target.
// returns . w(lambda) is non-increasing in lambda, so bisection applies.
func (s *FeasibleSet) projectWithTarget(dst, v []float64) {
	mu, t := s.returns, s.target
	orig := make([]float64, s.n)
	copy(orig, v)
	shifted := make([]float64, s.n)
	scratch := make([]float64, 2*s.n)
	tol := 1e-12 * (1 + math.Abs(t))

	eval := func(lambda float64) float64 {
		for i := range shifted {
			shifted[i] = orig[i] - lambda*mu[i]
		}
		projectBoxSimplex(dst, shifted, s.lower, s.upper, scratch)
		return floats.Dot(mu, dst)
	}

	r := eval(0)
	if math.Abs(r-t) <= tol {
		return
	}

	// Bracket [a, b] with r(a) >= t >= r(b).
	var a, b float64
	if r > t {
		a, b = 0, 1
		for eval(b) > t && b < maxMultiplier {
			a, b = b, b*2
		}
	} else {
		a, b = -1, 0
		for eval(a) < t && -a < maxMultiplier {
			a, b = a*2, a
		}
	}

	for i := 0; i < maxBisections; i++ {
		m := a + (b-a)/2
		if m == a || m == b {
			break
		}
		r = eval(m)
		if math.Abs(r-t) <= tol {
			return
		}
		if r > t {
			a = m
		} else {
			b = m
		}
	}
	eval(a + (b-a)/2)
}

func (s *FeasibleSet) attainableReturn(returns []float64, highest bool) float64 {
	idx := make([]int, len(returns))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if highest {
			return returns[idx[a]] > returns[idx[b]]
		}
		return returns[idx[a]] < returns[idx[b]]
	})

	remaining := 1 - float64(len(returns))*s.lower
	total := s.lower * floats.Sum(returns)
	for _, i := range idx {
		take := math.Min(s.upper-s.lower, remaining)
		if take <= 0 {
			break
		}
		total += take * returns[i]
		remaining -= take
	}
	return total
}

// projectBoxSimplex writes w_i = clip(v_i - tau, lo, hi) with tau chosen so
// that sum(w) = 1. sum(w) is piecewise linear and non-increasing in tau with
// breakpoints v_i - hi and v_i - lo, so tau is found exactly by a search over
// the sorted breakpoints followed by linear interpolation.
func projectBoxSimplex(dst, v []float64, lo, hi float64, scratch []float64) {
	n := len(v)
	if hi-lo <= 0 || float64(n)*lo >= 1 {
		fill(dst, lo)
		return
	}
	if float64(n)*hi <= 1 {
		fill(dst, hi)
		return
	}

	bp := scratch
	if cap(bp) < 2*n {
		bp = make([]float64, 0, 2*n)
	}
	bp = bp[:0]
	for _, x := range v {
		bp = append(bp, x-hi, x-lo)
	}
	sort.Float64s(bp)

	sumAt := func(tau float64) float64 {
		s := 0.0
		for _, x := range v {
			s += clip(x-tau, lo, hi)
		}
		return s
	}

	// sumAt(bp[0]) = n*hi > 1 and sumAt(bp[last]) = n*lo < 1.
	left, right := 0, len(bp)-1
	for right-left > 1 {
		mid := (left + right) / 2
		if sumAt(bp[mid]) >= 1 {
			left = mid
		} else {
			right = mid
		}
	}

	a, b := bp[left], bp[right]
	sa, sb := sumAt(a), sumAt(b)
	tau := a
	if sa > sb {
		tau = a + (sa-1)*(b-a)/(sa-sb)
	}

	for i, x := range v {
		dst[i] = clip(x-tau, lo, hi)
	}
}

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func fill(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}
