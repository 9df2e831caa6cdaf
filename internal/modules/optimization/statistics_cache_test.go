package optimization

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticsCodec(t *testing.T) {
	stats, err := Prepare(syntheticPrices(80, 4), DefaultMinObservations)
	require.NoError(t, err)

	data, err := EncodeStatistics(stats)
	require.NoError(t, err)
	got, err := DecodeStatistics(data)
	require.NoError(t, err)

	assert.Equal(t, stats.Symbols, got.Symbols)
	assert.Equal(t, stats.MeanReturns, got.MeanReturns)
	assert.Equal(t, stats.Observations, got.Observations)
	assert.True(t, stats.StartDate().Equal(got.StartDate()))
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, stats.Covariance.At(i, j), got.Covariance.At(i, j))
		}
	}
	assert.Equal(t, stats.Returns.RawMatrix().Data, got.Returns.RawMatrix().Data)
}

func TestDecodeStatistics_Malformed(t *testing.T) {
	_, err := DecodeStatistics([]byte("not msgpack"))
	assert.Error(t, err)

	data, err := EncodeStatistics(statisticsFrom([]string{"A", "B"}, []float64{0.1, 0.2}, [][]float64{{1, 0}, {0, 1}}))
	require.NoError(t, err)
	_, err = DecodeStatistics(data)
	assert.True(t, errors.Is(err, ErrInvalidInput), "returns are missing")
}

func TestStatisticsKey(t *testing.T) {
	a := statisticsKey([]string{"A", "B"}, "2y", 20)
	assert.Len(t, a, 32)
	assert.Equal(t, a, statisticsKey([]string{"A", "B"}, "2y", 20))
	assert.NotEqual(t, a, statisticsKey([]string{"B", "A"}, "2y", 20))
	assert.NotEqual(t, a, statisticsKey([]string{"A", "B"}, "1y", 20))
}
