package report

import (
	"strings"
	"testing"
	"time"

	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func sampleReport() *optimization.AnalysisReport {
	return &optimization.AnalysisReport{
		Symbols:      []string{"AAA", "BBB", "CCC"},
		Period:       "2y",
		RiskFreeRate: 0.02,
		Constraints:  optimization.Constraints{MinWeight: 0, MaxWeight: 0.6},
		StartDate:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		DataPoints:   501,
		Warnings:     []string{"Symbol DDD dropped: no usable price data"},
		MaxSharpePortfolio: &optimization.OptimizationResult{
			Type:           optimization.ModeMaxSharpe,
			Weights:        map[string]float64{"AAA": 0.4, "BBB": 0.6, "CCC": 0},
			ExpectedReturn: 0.1234,
			Volatility:     0.15,
			SharpeRatio:    ptr(0.6893),
			Success:        true,
		},
		MinVariancePortfolio: &optimization.OptimizationResult{
			Type:           optimization.ModeMinVariance,
			Weights:        map[string]float64{"AAA": 0.5, "BBB": 0.2, "CCC": 0.3},
			ExpectedReturn: 0.08,
			Volatility:     0.1,
			Success:        false,
			Message:        "iteration limit reached",
		},
		AssetStatistics: []optimization.AssetStatistics{
			{Symbol: "AAA", ExpectedReturn: 0.1, Volatility: 0.2, SharpeRatio: ptr(0.4), MaxDrawdown: ptr(0.25)},
			{Symbol: "BBB", ExpectedReturn: -0.05, Volatility: 0.3},
		},
		CorrelationMatrix: &optimization.CorrelationMatrix{
			Symbols: []string{"AAA", "BBB", "CCC"},
			HighCorrelations: []optimization.CorrelationPair{
				{Symbol1: "AAA", Symbol2: "CCC", Correlation: 0.91},
			},
		},
		EfficientFrontier: &optimization.Frontier{
			Returns:         []float64{0.05, 0.1},
			Volatilities:    []float64{0.1, 0.2},
			SharpeRatios:    []*float64{ptr(0.3), nil},
			NumPoints:       2,
			RequestedPoints: 50,
		},
	}
}

func TestRenderAnalysis(t *testing.T) {
	md, err := RenderAnalysis(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, md, "# Portfolio analysis: AAA, BBB, CCC")
	assert.Contains(t, md, "(2024-01-02 to 2025-12-31, 501 daily returns), risk-free rate 2.00%")
	assert.Contains(t, md, "Weights bounded to [0.00%, 60.00%]")
	assert.Contains(t, md, "- Symbol DDD dropped")

	assert.Contains(t, md, "## Maximum Sharpe portfolio")
	assert.Contains(t, md, "| 12.34% | 15.00% | 0.689 |")
	assert.Less(t, strings.Index(md, "| BBB | 60.00% |"), strings.Index(md, "| AAA | 40.00% |"))
	assert.NotContains(t, md, "| CCC | 0.00% |", "zero weights are omitted")

	assert.Contains(t, md, "## Minimum variance portfolio")
	assert.Contains(t, md, "> Optimization did not converge: iteration limit reached")
	assert.Contains(t, md, "| 8.00% | 10.00% | n/a |")

	assert.Contains(t, md, "| AAA | 10.00% | 20.00% | 0.400 | 25.00% |")
	assert.Contains(t, md, "| BBB | -5.00% | 30.00% | n/a | n/a |")

	assert.Contains(t, md, "2 of 50 target returns were feasible.")
	assert.Contains(t, md, "| 10.00% | 20.00% | n/a |")
	assert.Contains(t, md, "| AAA / CCC | 0.910 |")
}

func TestRenderAnalysis_OptionalSections(t *testing.T) {
	r := sampleReport()
	r.Warnings = nil
	r.EfficientFrontier = nil
	r.MinVariancePortfolio = nil
	r.CorrelationMatrix.HighCorrelations = nil

	md, err := RenderAnalysis(r)
	require.NoError(t, err)
	assert.NotContains(t, md, "## Warnings")
	assert.NotContains(t, md, "## Efficient frontier")
	assert.NotContains(t, md, "## Minimum variance portfolio")
	assert.Contains(t, md, "No pair exceeds the correlation threshold.")

	_, err = RenderAnalysis(nil)
	assert.Error(t, err)
}

func TestRenderResult(t *testing.T) {
	result := &optimization.OptimizationResult{
		Type:           optimization.ModeTargetReturn,
		TargetReturn:   ptr(0.1),
		Weights:        map[string]float64{"SPY": 0.7, "TLT": 0.3},
		ExpectedReturn: 0.1,
		Volatility:     0.12,
		SharpeRatio:    ptr(0.6667),
		Success:        true,
	}

	md, err := RenderResult([]string{"SPY", "TLT"}, result)
	require.NoError(t, err)
	assert.Contains(t, md, "# Optimization: SPY, TLT")
	assert.Contains(t, md, "## Target return portfolio (10.00%)")
	assert.Contains(t, md, "| SPY | 70.00% |")
	assert.NotContains(t, md, "did not converge")

	_, err = RenderResult(nil, nil)
	assert.Error(t, err)
}

func TestFrontierRows_Sampling(t *testing.T) {
	f := &optimization.Frontier{}
	for i := 0; i < 30; i++ {
		f.Returns = append(f.Returns, float64(i))
		f.Volatilities = append(f.Volatilities, float64(i))
		f.SharpeRatios = append(f.SharpeRatios, nil)
	}

	rows := frontierRows(f)
	require.Len(t, rows, 11)
	assert.Equal(t, 0.0, rows[0].ExpectedReturn)
	assert.Equal(t, 3.0, rows[1].ExpectedReturn)
	assert.Equal(t, 29.0, rows[10].ExpectedReturn)

	assert.Nil(t, frontierRows(&optimization.Frontier{}))
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "12.34%", formatPercent(0.1234))
	assert.Equal(t, "-5.00%", formatPercent(-0.05))
	assert.Equal(t, "0.00%", formatPercent(0))
	assert.Equal(t, "0.850", formatNumber(0.85))
	assert.Equal(t, "n/a", formatRatio(nil))
	assert.Equal(t, "n/a", formatOptionalPercent(nil))
}
