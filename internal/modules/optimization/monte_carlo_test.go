package optimization

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonteCarlo_DeterministicForSeed(t *testing.T) {
	seed := uint64(42)
	one, err := NewSession(threeAssetStatistics(), SessionOptions{Constraints: DefaultConstraints(), Workers: 1, Log: zerolog.Nop()})
	require.NoError(t, err)
	many, err := NewSession(threeAssetStatistics(), SessionOptions{Constraints: DefaultConstraints(), Workers: 8, Log: zerolog.Nop()})
	require.NoError(t, err)

	a, err := one.MonteCarlo(context.Background(), 3000, &seed)
	require.NoError(t, err)
	b, err := many.MonteCarlo(context.Background(), 3000, &seed)
	require.NoError(t, err)

	assert.Equal(t, a.Weights, b.Weights, "output must not depend on worker count")
	assert.Equal(t, a.Returns, b.Returns)
	assert.Equal(t, seed, a.Seed)
	assert.Equal(t, 3000, a.NumPortfolios)
	assert.False(t, a.RespectBounds)

	other := uint64(43)
	c, err := one.MonteCarlo(context.Background(), 3000, &other)
	require.NoError(t, err)
	assert.NotEqual(t, a.Weights[0], c.Weights[0])
}

func TestMonteCarlo_WeightsOnSimplex(t *testing.T) {
	sess := newTestSession(t, threeAssetStatistics(), DefaultConstraints())

	res, err := sess.MonteCarlo(context.Background(), 500, nil)
	require.NoError(t, err)
	require.Len(t, res.Weights, 500)
	for i, w := range res.Weights {
		require.Len(t, w, 3)
		assert.InDelta(t, 1.0, sum(w), 1e-12)
		for _, x := range w {
			assert.GreaterOrEqual(t, x, 0.0)
		}
		st, err := sess.Stats(w)
		require.NoError(t, err)
		assert.Equal(t, st.ExpectedReturn, res.Returns[i])
		assert.Equal(t, st.Volatility, res.Volatilities[i])
	}
}

func TestMonteCarlo_ApproachesMaxSharpeFromBelow(t *testing.T) {
	sess := newTestSession(t, threeAssetStatistics(), DefaultConstraints())
	seed := uint64(7)

	opt, err := sess.MaxSharpe(context.Background())
	require.NoError(t, err)
	require.NotNil(t, opt.SharpeRatio)

	small, err := sess.MonteCarlo(context.Background(), 100, &seed)
	require.NoError(t, err)
	large, err := sess.MonteCarlo(context.Background(), 100000, &seed)
	require.NoError(t, err)

	bestSmall, ok := small.MaxSharpe()
	require.True(t, ok)
	bestLarge, ok := large.MaxSharpe()
	require.True(t, ok)

	// The first 100 samples are shared, so more samples never do worse.
	assert.GreaterOrEqual(t, bestLarge, bestSmall)
	assert.LessOrEqual(t, bestLarge, *opt.SharpeRatio+1e-9)
	assert.InDelta(t, *opt.SharpeRatio, bestLarge, 0.01)
}

func TestMonteCarlo_RespectBounds(t *testing.T) {
	c := Constraints{MinWeight: 0.1, MaxWeight: 0.5}
	sess, err := NewSession(threeAssetStatistics(), SessionOptions{
		Constraints:             c,
		MonteCarloRespectBounds: true,
		Log:                     zerolog.Nop(),
	})
	require.NoError(t, err)
	seed := uint64(1)

	res, err := sess.MonteCarlo(context.Background(), 2000, &seed)
	require.NoError(t, err)
	assert.True(t, res.RespectBounds)
	for _, w := range res.Weights {
		assert.True(t, c.Contains(w, 1e-9), "sample outside bounds: %v", w)
	}
}

func TestMonteCarlo_InvalidCount(t *testing.T) {
	sess := newTestSession(t, threeAssetStatistics(), DefaultConstraints())

	_, err := sess.MonteCarlo(context.Background(), 0, nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestMonteCarlo_Cancelled(t *testing.T) {
	sess := newTestSession(t, threeAssetStatistics(), DefaultConstraints())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sess.MonteCarlo(ctx, 5000, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}
