// Package report renders optimizer output as markdown.
package report

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.md
var templates embed.FS

// Weights below this are shown as zero and dropped from weight tables.
const minDisplayWeight = 0.00005

// maxFrontierRows bounds the frontier table; longer frontiers are sampled.
const maxFrontierRows = 12

type weightRow struct {
	Symbol string
	Weight float64
}

type portfolioView struct {
	Title          string
	Success        bool
	Message        string
	ExpectedReturn float64
	Volatility     float64
	SharpeRatio    *float64
	Weights        []weightRow
}

type frontierRow struct {
	ExpectedReturn float64
	Volatility     float64
	SharpeRatio    *float64
}

type analysisView struct {
	Symbols           []string
	Period            string
	StartDate         time.Time
	EndDate           time.Time
	DataPoints        int
	RiskFreeRate      float64
	Constraints       optimization.Constraints
	Warnings          []string
	MaxSharpe         *portfolioView
	MinVariance       *portfolioView
	Assets            []optimization.AssetStatistics
	Frontier          []frontierRow
	FrontierRequested int
	Correlation       *optimization.CorrelationMatrix
}

type resultView struct {
	Symbols   []string
	Portfolio *portfolioView
}

var funcs = template.FuncMap{
	"join":   strings.Join,
	"pct":    formatPercent,
	"optpct": formatOptionalPercent,
	"num":    formatNumber,
	"ratio":  formatRatio,
	"date":   func(t time.Time) string { return t.Format("2006-01-02") },
}

// RenderAnalysis renders a full analysis report.
func RenderAnalysis(r *optimization.AnalysisReport) (string, error) {
	if r == nil {
		return "", fmt.Errorf("nil analysis report")
	}
	view := analysisView{
		Symbols:      r.Symbols,
		Period:       r.Period,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		DataPoints:   r.DataPoints,
		RiskFreeRate: r.RiskFreeRate,
		Constraints:  r.Constraints,
		Warnings:     r.Warnings,
		MaxSharpe:    newPortfolioView("Maximum Sharpe portfolio", r.Symbols, r.MaxSharpePortfolio),
		MinVariance:  newPortfolioView("Minimum variance portfolio", r.Symbols, r.MinVariancePortfolio),
		Assets:       r.AssetStatistics,
		Correlation:  r.CorrelationMatrix,
	}
	if f := r.EfficientFrontier; f != nil {
		view.Frontier = frontierRows(f)
		view.FrontierRequested = f.RequestedPoints
	}
	return render("analysis.md", view)
}

// RenderResult renders a single optimization result.
func RenderResult(symbols []string, result *optimization.OptimizationResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("nil optimization result")
	}
	title := "Maximum Sharpe portfolio"
	switch result.Type {
	case optimization.ModeMinVariance:
		title = "Minimum variance portfolio"
	case optimization.ModeTargetReturn:
		title = "Target return portfolio"
		if result.TargetReturn != nil {
			title += " (" + formatPercent(*result.TargetReturn) + ")"
		}
	}
	return render("result.md", resultView{
		Symbols:   symbols,
		Portfolio: newPortfolioView(title, symbols, result),
	})
}

func render(mainFile string, data any) (string, error) {
	tmpl, err := template.New(mainFile).Funcs(funcs).ParseFS(templates, "templates/"+mainFile, "templates/portfolio.md")
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", mainFile, err)
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, mainFile, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", mainFile, err)
	}
	return b.String(), nil
}

func newPortfolioView(title string, symbols []string, r *optimization.OptimizationResult) *portfolioView {
	if r == nil {
		return nil
	}
	view := &portfolioView{
		Title:          title,
		Success:        r.Success,
		Message:        r.Message,
		ExpectedReturn: r.ExpectedReturn,
		Volatility:     r.Volatility,
		SharpeRatio:    r.SharpeRatio,
	}
	for _, s := range symbols {
		if w := r.Weights[s]; w >= minDisplayWeight {
			view.Weights = append(view.Weights, weightRow{Symbol: s, Weight: w})
		}
	}
	// Heaviest first, ties keep symbol order
	sort.SliceStable(view.Weights, func(i, j int) bool {
		return view.Weights[i].Weight > view.Weights[j].Weight
	})
	return view
}

func frontierRows(f *optimization.Frontier) []frontierRow {
	n := len(f.Returns)
	if n == 0 {
		return nil
	}
	step := 1
	if n > maxFrontierRows {
		step = (n + maxFrontierRows - 1) / maxFrontierRows
	}

	var rows []frontierRow
	for i := 0; i < n; i += step {
		rows = append(rows, frontierRow{f.Returns[i], f.Volatilities[i], f.SharpeRatios[i]})
	}
	// Always end on the highest-return point
	if last := n - 1; last%step != 0 {
		rows = append(rows, frontierRow{f.Returns[last], f.Volatilities[last], f.SharpeRatios[last]})
	}
	return rows
}

func formatPercent(v float64) string {
	return decimal.NewFromFloat(v).Shift(2).StringFixed(2) + "%"
}

func formatOptionalPercent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return formatPercent(*v)
}

func formatNumber(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(3)
}

func formatRatio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return formatNumber(*v)
}
