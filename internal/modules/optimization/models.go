package optimization

import (
	"time"
)

// Mode selects the optimization objective.
type Mode string

const (
	// ModeMaxSharpe maximizes (return - rf) / volatility
	ModeMaxSharpe Mode = "max_sharpe"
	// ModeMinVariance minimizes portfolio volatility
	ModeMinVariance Mode = "min_variance"
	// ModeTargetReturn minimizes volatility at a fixed expected return
	ModeTargetReturn Mode = "target_return"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeMaxSharpe, ModeMinVariance, ModeTargetReturn:
		return Mode(s), true
	}
	return "", false
}

// PriceMatrix is a T x N table of close prices. Rows are dates in strictly
// increasing order, columns follow Symbols. NaN marks a missing cell.
type PriceMatrix struct {
	Symbols []string
	Dates   []time.Time
	Prices  [][]float64
}

// PortfolioStats are the three figures computed for any weight vector.
type PortfolioStats struct {
	ExpectedReturn float64  `json:"expected_return"`
	Volatility     float64  `json:"volatility"`
	SharpeRatio    *float64 `json:"sharpe_ratio"`
}

// OptimizationResult is the outcome of one optimizer call.
type OptimizationResult struct {
	Type           Mode               `json:"type"`
	TargetReturn   *float64           `json:"target_return,omitempty"`
	Weights        map[string]float64 `json:"weights"`
	ExpectedReturn float64            `json:"expected_return"`
	Volatility     float64            `json:"volatility"`
	SharpeRatio    *float64           `json:"sharpe_ratio"`
	Success        bool               `json:"success"`
	Message        string             `json:"message,omitempty"`
	Iterations     int                `json:"iterations,omitempty"`

	weights []float64
	symbols []string
}

// WeightVector returns the weights in asset order.
func (r *OptimizationResult) WeightVector() []float64 {
	out := make([]float64, len(r.weights))
	copy(out, r.weights)
	return out
}

// Symbols returns the assets the result was solved over, in session
// order. Symbols dropped while preparing statistics are not included.
func (r *OptimizationResult) Symbols() []string {
	out := make([]string, len(r.symbols))
	copy(out, r.symbols)
	return out
}

// FrontierPoint is a solved target-return portfolio.
type FrontierPoint struct {
	Target float64
	Result *OptimizationResult
}

// Frontier is the efficient frontier ordered by ascending target return.
// Infeasible targets are omitted, so NumPoints may be below RequestedPoints.
type Frontier struct {
	Returns              []float64            `json:"returns"`
	Volatilities         []float64            `json:"volatilities"`
	SharpeRatios         []*float64           `json:"sharpe_ratios"`
	Weights              []map[string]float64 `json:"weights"`
	TargetReturns        []float64            `json:"target_returns"`
	MinVariancePortfolio *OptimizationResult  `json:"min_variance_portfolio"`
	MaxSharpePortfolio   *OptimizationResult  `json:"max_sharpe_portfolio"`
	NumPoints            int                  `json:"num_points"`
	RequestedPoints      int                  `json:"requested_points"`

	points []FrontierPoint
}

// Points returns the surviving frontier points.
func (f *Frontier) Points() []FrontierPoint {
	out := make([]FrontierPoint, len(f.points))
	copy(out, f.points)
	return out
}

// MonteCarloResult holds randomly sampled portfolios.
type MonteCarloResult struct {
	Returns       []float64   `json:"returns"`
	Volatilities  []float64   `json:"volatilities"`
	SharpeRatios  []*float64  `json:"sharpe_ratios"`
	Weights       [][]float64 `json:"weights"`
	NumPortfolios int         `json:"num_portfolios"`
	Seed          uint64      `json:"seed"`
	RespectBounds bool        `json:"respect_bounds"`
}

// MaxSharpe returns the largest defined Sharpe ratio among the samples.
func (m *MonteCarloResult) MaxSharpe() (float64, bool) {
	best, found := 0.0, false
	for _, s := range m.SharpeRatios {
		if s == nil {
			continue
		}
		if !found || *s > best {
			best, found = *s, true
		}
	}
	return best, found
}

// CorrelationPair is a pair of assets whose correlation magnitude exceeds
// the reporting threshold.
type CorrelationPair struct {
	Symbol1     string  `json:"symbol1"`
	Symbol2     string  `json:"symbol2"`
	Correlation float64 `json:"correlation"`
}

// CorrelationMatrix is the N x N correlation of daily returns.
type CorrelationMatrix struct {
	Symbols          []string          `json:"symbols"`
	Matrix           [][]float64       `json:"matrix"`
	HighCorrelations []CorrelationPair `json:"high_correlations"`
}

// AssetStatistics are the standalone figures of one asset. Windowed
// volatilities are nil when the window is longer than the history.
type AssetStatistics struct {
	Symbol         string        `json:"symbol"`
	ExpectedReturn float64       `json:"expected_return"`
	Volatility     float64       `json:"volatility"`
	SharpeRatio    *float64      `json:"sharpe_ratio"`
	MaxDrawdown    *float64      `json:"max_drawdown,omitempty"`
	Volatility30d  *float64      `json:"volatility_30d,omitempty"`
	Volatility90d  *float64      `json:"volatility_90d,omitempty"`
	Volatility180d *float64      `json:"volatility_180d,omitempty"`
	ValueAtRisk    []ValueAtRisk `json:"value_at_risk,omitempty"`
}

// ValueAtRisk holds one-day loss estimates at one confidence level, as
// positive fractions of the position.
type ValueAtRisk struct {
	Confidence        float64 `json:"confidence"`
	Parametric        float64 `json:"parametric"`
	Historical        float64 `json:"historical"`
	ExpectedShortfall float64 `json:"expected_shortfall"`
}

// AnalysisReport is the aggregate produced by Service.Analyze.
type AnalysisReport struct {
	Symbols              []string            `json:"symbols"`
	AnalysisDate         time.Time           `json:"analysis_date"`
	Period               string              `json:"period"`
	RiskFreeRate         float64             `json:"risk_free_rate"`
	Constraints          Constraints         `json:"constraints"`
	MaxSharpePortfolio   *OptimizationResult `json:"max_sharpe_portfolio"`
	MinVariancePortfolio *OptimizationResult `json:"min_variance_portfolio"`
	EfficientFrontier    *Frontier           `json:"efficient_frontier"`
	CorrelationMatrix    *CorrelationMatrix  `json:"correlation_matrix"`
	AssetStatistics      []AssetStatistics   `json:"asset_statistics"`
	DataPoints           int                 `json:"data_points"`
	StartDate            time.Time           `json:"start_date"`
	EndDate              time.Time           `json:"end_date"`
	Warnings             []string            `json:"warnings,omitempty"`
}
