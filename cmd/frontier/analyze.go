package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/report"
)

// requestFlags are shared by analyze and optimize.
type requestFlags struct {
	symbols      []string
	period       string
	minWeight    float64
	maxWeight    float64
	riskFreeRate float64
	format       string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.symbols, "symbols", "s", nil, "comma-separated symbols (at least two)")
	cmd.Flags().StringVar(&f.period, "period", "", "lookback period: 1mo,3mo,6mo,1y,2y,5y,10y,ytd,max")
	cmd.Flags().Float64Var(&f.minWeight, "min-weight", 0, "minimum weight per asset")
	cmd.Flags().Float64Var(&f.maxWeight, "max-weight", 1, "maximum weight per asset")
	cmd.Flags().Float64Var(&f.riskFreeRate, "risk-free-rate", 0, "annual risk-free rate (default from config)")
	cmd.Flags().StringVarP(&f.format, "format", "f", formatJSON, "output format: json, markdown or pretty")
	_ = cmd.MarkFlagRequired("symbols")
}

func (f *requestFlags) request(cmd *cobra.Command) (optimization.Request, error) {
	if err := validateFormat(f.format); err != nil {
		return optimization.Request{}, err
	}
	req := optimization.Request{
		Symbols: splitSymbols(f.symbols),
		Period:  f.period,
	}
	if cmd.Flags().Changed("min-weight") || cmd.Flags().Changed("max-weight") {
		req.Constraints = &optimization.Constraints{MinWeight: f.minWeight, MaxWeight: f.maxWeight}
	}
	if cmd.Flags().Changed("risk-free-rate") {
		rf := f.riskFreeRate
		req.RiskFreeRate = &rf
	}
	return req, nil
}

func newAnalyzeCmd(a *app) *cobra.Command {
	flags := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full portfolio analysis",
		Long: `Computes the maximum Sharpe and minimum variance portfolios, the
efficient frontier, the correlation matrix and per-asset statistics.`,
		Example: `  frontier analyze --symbols SPY,QQQ,TLT,GLD
  frontier analyze -s SPY,TLT --period 5y --max-weight 0.7 --format pretty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(cmd)
			if err != nil {
				return err
			}
			container, err := a.open(cmd.Context())
			if err != nil {
				return err
			}

			result, err := container.OptimizationService.Analyze(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if flags.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			md, err := report.RenderAnalysis(result)
			if err != nil {
				return err
			}
			return writeMarkdown(cmd.OutOrStdout(), md, flags.format)
		},
	}
	flags.register(cmd)
	return cmd
}

func newOptimizeCmd(a *app) *cobra.Command {
	flags := &requestFlags{}
	var mode string
	var target float64
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Solve a single optimization",
		Example: `  frontier optimize -s SPY,TLT,GLD --mode min_variance
  frontier optimize -s SPY,TLT,GLD --mode target_return --target-return 0.08`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(cmd)
			if err != nil {
				return err
			}
			m, ok := optimization.ParseMode(mode)
			if !ok {
				return fmt.Errorf("unknown mode %q", mode)
			}
			var targetReturn *float64
			if m == optimization.ModeTargetReturn {
				if !cmd.Flags().Changed("target-return") {
					return fmt.Errorf("--target-return is required for mode %s", m)
				}
				targetReturn = &target
			}

			container, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			result, err := container.OptimizationService.Optimize(cmd.Context(), req, m, targetReturn)
			if err != nil {
				return fmt.Errorf("optimization failed: %w", err)
			}

			if flags.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			md, err := report.RenderResult(result.Symbols(), result)
			if err != nil {
				return err
			}
			return writeMarkdown(cmd.OutOrStdout(), md, flags.format)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&mode, "mode", string(optimization.ModeMaxSharpe), "max_sharpe, min_variance or target_return")
	cmd.Flags().Float64Var(&target, "target-return", 0, "annual target return for target_return mode")
	return cmd
}
