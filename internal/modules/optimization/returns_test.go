package optimization

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestPrepare_AnnualizedMoments(t *testing.T) {
	prices := syntheticPrices(120, 1)

	stats, err := Prepare(prices, DefaultMinObservations)
	require.NoError(t, err)

	assert.Equal(t, prices.Symbols, stats.Symbols)
	assert.Equal(t, 119, stats.Observations)
	rows, cols := stats.Returns.Dims()
	assert.Equal(t, 119, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, prices.Dates[0], stats.StartDate())
	assert.Equal(t, prices.Dates[119], stats.EndDate())

	a := make([]float64, 119)
	b := make([]float64, 119)
	for i := 1; i < 120; i++ {
		a[i-1] = prices.Prices[i][0]/prices.Prices[i-1][0] - 1
		b[i-1] = prices.Prices[i][1]/prices.Prices[i-1][1] - 1
	}
	assert.InDelta(t, stat.Mean(a, nil)*252, stats.MeanReturns[0], 1e-12)
	assert.InDelta(t, stat.Covariance(a, b, nil)*252, stats.Covariance.At(0, 1), 1e-12)
	assert.InDelta(t, stat.Variance(a, nil)*252, stats.Covariance.At(0, 0), 1e-12)
}

func TestPrepare_CovarianceSymmetric(t *testing.T) {
	stats, err := Prepare(syntheticPrices(250, 3), DefaultMinObservations)
	require.NoError(t, err)

	n := stats.NumAssets()
	dense := mat.DenseCopyOf(stats.Covariance)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.Equal(t, dense.At(i, j), dense.At(j, i))
		}
	}
}

func TestPrepare_DropsMissingData(t *testing.T) {
	prices := syntheticPrices(60, 5)
	prices.Symbols = append(prices.Symbols, "EMPTY")
	for i := range prices.Prices {
		prices.Prices[i] = append(prices.Prices[i], math.NaN())
	}
	// Gaps in a live asset drop the whole row.
	prices.Prices[10][1] = math.NaN()
	prices.Prices[20][2] = 0

	stats, err := Prepare(prices, DefaultMinObservations)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, stats.Symbols)
	assert.Equal(t, []string{"EMPTY"}, stats.Dropped)
	assert.Equal(t, 57, stats.Observations)
	assert.Len(t, stats.Dates, 58)
}

func TestPrepare_Errors(t *testing.T) {
	day := func(i int) time.Time { return time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC) }

	t.Run("insufficient observations", func(t *testing.T) {
		_, err := Prepare(syntheticPrices(15, 1), DefaultMinObservations)
		var dataErr *InsufficientDataError
		require.True(t, errors.As(err, &dataErr))
		assert.Equal(t, 14, dataErr.Observations)
		assert.Equal(t, 20, dataErr.Required)
		assert.True(t, errors.Is(err, ErrInsufficientData))
	})

	t.Run("configurable floor", func(t *testing.T) {
		_, err := Prepare(syntheticPrices(15, 1), 10)
		assert.NoError(t, err)
	})

	t.Run("one usable asset", func(t *testing.T) {
		prices := syntheticPrices(40, 1)
		for i := range prices.Prices {
			prices.Prices[i][1] = math.NaN()
			prices.Prices[i][2] = math.NaN()
		}
		_, err := Prepare(prices, DefaultMinObservations)
		var assetsErr *InsufficientAssetsError
		require.True(t, errors.As(err, &assetsErr))
		assert.Equal(t, 1, assetsErr.Have)
		assert.True(t, errors.Is(err, ErrInsufficientAssets))
		assert.True(t, errors.Is(err, ErrInsufficientData))
	})

	t.Run("single symbol", func(t *testing.T) {
		_, err := Prepare(PriceMatrix{Symbols: []string{"A"}}, DefaultMinObservations)
		assert.True(t, errors.Is(err, ErrInsufficientAssets))
	})

	t.Run("duplicate symbols", func(t *testing.T) {
		_, err := Prepare(PriceMatrix{Symbols: []string{"A", "A"}}, DefaultMinObservations)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("ragged rows", func(t *testing.T) {
		_, err := Prepare(PriceMatrix{
			Symbols: []string{"A", "B"},
			Dates:   []time.Time{day(0), day(1)},
			Prices:  [][]float64{{1, 2}, {1}},
		}, DefaultMinObservations)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("unordered dates", func(t *testing.T) {
		_, err := Prepare(PriceMatrix{
			Symbols: []string{"A", "B"},
			Dates:   []time.Time{day(1), day(0)},
			Prices:  [][]float64{{1, 2}, {1, 2}},
		}, DefaultMinObservations)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})
}
