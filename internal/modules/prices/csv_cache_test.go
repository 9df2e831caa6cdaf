package prices

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"strings"
	"testing"

	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV_Classic(t *testing.T) {
	in := `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-03,10,11,9,10.5,10.4,100
2024-01-02,9,10,8,9.5,9.4,100
2024-01-04,10,11,9,,10.4,100
2024-01-05,10,11,9,nan,10.4,100
`
	got, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day("2024-01-02"), got[0].Date)
	assert.Equal(t, 9.5, got[0].Close)
	assert.Equal(t, 10.5, got[1].Close)
}

func TestParseCSV_MultiIndexHeader(t *testing.T) {
	in := `Price,Close,High,Low,Open,Volume
Ticker,AAPL,AAPL,AAPL,AAPL,AAPL
Date,,,,,
2024-01-02 00:00:00-05:00,185.2,188,183,187,1000
2024-01-03 00:00:00-05:00,184.0,186,183,184,1000
`
	got, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day("2024-01-02"), got[0].Date)
	assert.Equal(t, 185.2, got[0].Close)
}

func TestParseCSV_NoCloseColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("Date,Open\n2024-01-02,1\n"))
	assert.Error(t, err)
}

func TestCSVCache_ReadSeriesFallsBackToDefaultPeriod(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "AAA_2y_1d.csv", day("2024-01-01"), 1, 2, 3)
	writeCSV(t, dir, "AAA_1y_1d.csv", day("2024-01-01"), 5, 6)
	cache := NewCSVCache(dir, zerolog.Nop())

	got, err := cache.ReadSeries("AAA", "1y")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = cache.ReadSeries("AAA", "5y")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = cache.ReadSeries("ZZZ", "2y")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCSVCache_LoadPrices(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "AAA_2y_1d.csv", day("2024-01-01"), 1, 2, 3)
	writeCSV(t, dir, "BBB_2y_1d.csv", day("2024-01-02"), 7, 8)
	cache := NewCSVCache(dir, zerolog.Nop())

	m, err := cache.LoadPrices(context.Background(), []string{"AAA", "BBB", "CCC"}, "2y")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, m.Symbols)
	require.Len(t, m.Dates, 3)
	assert.True(t, math.IsNaN(m.Prices[0][1]), "BBB has no price on the first day")
	assert.Equal(t, 8.0, m.Prices[2][1])
	for _, row := range m.Prices {
		assert.True(t, math.IsNaN(row[2]), "missing file becomes an empty column")
	}

	_, err = cache.LoadPrices(context.Background(), []string{"XXX", "YYY"}, "2y")
	assert.True(t, errors.Is(err, optimization.ErrPricesNotFound))
}
