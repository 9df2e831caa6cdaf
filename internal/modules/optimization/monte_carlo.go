package optimization

import (
	"context"
	"fmt"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// monteCarloChunk is the number of samples drawn from one PCG stream. The
// chunking is fixed so output depends only on the seed, not on how many
// workers run.
const monteCarloChunk = 1024

// MonteCarlo draws numPortfolios random portfolios and evaluates each one.
// Weights are independent uniform draws normalized to sum to one. Unless
// the session respects bounds, samples cover the whole simplex and may fall
// outside the configured weight bounds. A nil seed draws a fresh one,
// reported in the result.
func (s *AnalysisSession) MonteCarlo(ctx context.Context, numPortfolios int, seed *uint64) (*MonteCarloResult, error) {
	if numPortfolios < 1 {
		return nil, fmt.Errorf("%w: num_portfolios must be positive, got %d", ErrInvalidInput, numPortfolios)
	}

	base := rand.Uint64()
	if seed != nil {
		base = *seed
	}

	out := &MonteCarloResult{
		Returns:       make([]float64, numPortfolios),
		Volatilities:  make([]float64, numPortfolios),
		SharpeRatios:  make([]*float64, numPortfolios),
		Weights:       make([][]float64, numPortfolios),
		NumPortfolios: numPortfolios,
		Seed:          base,
		RespectBounds: s.respectBounds,
	}

	chunks := (numPortfolios + monteCarloChunk - 1) / monteCarloChunk
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for c := 0; c < chunks; c++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(base, uint64(c)))
			start := c * monteCarloChunk
			end := min(start+monteCarloChunk, numPortfolios)
			for i := start; i < end; i++ {
				w := s.randomWeights(rng)
				st := s.model.stats(w)
				out.Weights[i] = w
				out.Returns[i] = st.ExpectedReturn
				out.Volatilities[i] = st.Volatility
				out.SharpeRatios[i] = st.SharpeRatio
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("monte carlo: %w", err)
	}

	return out, nil
}

func (s *AnalysisSession) randomWeights(rng *rand.Rand) []float64 {
	w := make([]float64, s.model.n)
	for {
		for i := range w {
			w[i] = rng.Float64()
		}
		if sum := floats.Sum(w); sum > 0 {
			floats.Scale(1/sum, w)
			break
		}
	}
	if s.respectBounds {
		s.set.Project(w, w)
	}
	return w
}
