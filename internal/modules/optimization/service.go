package optimization

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// PriceLoader supplies close prices for a set of symbols over a period
// token such as "2y". Columns of the returned matrix may be a subset of the
// requested symbols; ErrPricesNotFound signals no data at all.
type PriceLoader interface {
	LoadPrices(ctx context.Context, symbols []string, period string) (PriceMatrix, error)
}

// HistoryEntry is one result written to the analysis history.
type HistoryEntry struct {
	Kind    string
	Symbols []string
	Period  string
	Payload interface{}
}

// HistoryRecorder persists analysis results.
type HistoryRecorder interface {
	Record(ctx context.Context, entry HistoryEntry) error
}

// Request identifies the universe and parameters of one analysis. Nil
// fields fall back to the service defaults.
type Request struct {
	Symbols      []string     `json:"symbols"`
	Period       string       `json:"period"`
	Constraints  *Constraints `json:"constraints,omitempty"`
	RiskFreeRate *float64     `json:"risk_free_rate,omitempty"`
}

// ServiceConfig holds the defaults applied to requests.
type ServiceConfig struct {
	RiskFreeRate            float64
	DefaultPeriod           string
	MinObservations         int
	FrontierPoints          int
	MonteCarloPortfolios    int
	MonteCarloRespectBounds bool
	Workers                 int
	Solver                  SolverSettings
	StatisticsCacheTTL      time.Duration
}

// DefaultServiceConfig returns the defaults used when nothing is configured.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		RiskFreeRate:         0.02,
		DefaultPeriod:        "2y",
		MinObservations:      DefaultMinObservations,
		FrontierPoints:       DefaultFrontierPoints,
		MonteCarloPortfolios: 10000,
		Solver:               DefaultSolverSettings(),
		StatisticsCacheTTL:   24 * time.Hour,
	}
}

// History kinds written by the service.
const (
	HistoryKindAnalysis     = "analysis"
	HistoryKindOptimization = "optimization"
)

// Service composes price loading, statistics preparation and the optimizer
// into the operations exposed by the API and CLI.
type Service struct {
	loader  PriceLoader
	cache   BlobCache
	history HistoryRecorder
	solver  Solver
	cfg     ServiceConfig
	log     zerolog.Logger
}

// NewService creates an optimization service.
func NewService(loader PriceLoader, cfg ServiceConfig, log zerolog.Logger) *Service {
	def := DefaultServiceConfig()
	if cfg.DefaultPeriod == "" {
		cfg.DefaultPeriod = def.DefaultPeriod
	}
	if cfg.MinObservations <= 0 {
		cfg.MinObservations = def.MinObservations
	}
	if cfg.FrontierPoints <= 0 {
		cfg.FrontierPoints = def.FrontierPoints
	}
	if cfg.MonteCarloPortfolios <= 0 {
		cfg.MonteCarloPortfolios = def.MonteCarloPortfolios
	}
	return &Service{
		loader: loader,
		solver: NewProjectedGradient(cfg.Solver),
		cfg:    cfg,
		log:    log.With().Str("component", "optimization_service").Logger(),
	}
}

// SetCache enables caching of prepared statistics.
func (s *Service) SetCache(cache BlobCache) {
	s.cache = cache
}

// SetSolver replaces the constrained optimizer used by new sessions.
func (s *Service) SetSolver(solver Solver) {
	if solver != nil {
		s.solver = solver
	}
}

// SetHistoryRecorder enables recording of analysis results.
func (s *Service) SetHistoryRecorder(history HistoryRecorder) {
	s.history = history
}

// Config returns the effective service defaults.
func (s *Service) Config() ServiceConfig {
	return s.cfg
}

// Session validates the request, loads prices, prepares statistics and
// returns an immutable session for them.
func (s *Service) Session(ctx context.Context, req Request) (*AnalysisSession, error) {
	symbols, err := NormalizeSymbols(req.Symbols)
	if err != nil {
		return nil, err
	}
	period := s.period(req)
	constraints := DefaultConstraints()
	if req.Constraints != nil {
		constraints = *req.Constraints
	}
	if err := constraints.Validate(len(symbols)); err != nil {
		return nil, err
	}

	stats, err := s.statistics(ctx, symbols, period)
	if err != nil {
		return nil, err
	}

	return NewSession(stats, SessionOptions{
		RiskFreeRate:            s.riskFreeRate(req),
		Constraints:             constraints,
		Solver:                  s.solver,
		Workers:                 s.cfg.Workers,
		MonteCarloRespectBounds: s.cfg.MonteCarloRespectBounds,
		Log:                     s.log,
	})
}

// Analyze builds the full report. It fails only when the session cannot
// be prepared; individual sections that fail are reported in Warnings.
func (s *Service) Analyze(ctx context.Context, req Request) (*AnalysisReport, error) {
	start := time.Now()
	sess, err := s.Session(ctx, req)
	if err != nil {
		return nil, err
	}
	stats := sess.Statistics()

	report := &AnalysisReport{
		Symbols:         sess.Symbols(),
		AnalysisDate:    time.Now().UTC(),
		Period:          s.period(req),
		RiskFreeRate:    sess.RiskFreeRate(),
		Constraints:     sess.Constraints(),
		AssetStatistics: sess.AssetStatistics(),
		DataPoints:      sess.Observations(),
		StartDate:       stats.StartDate(),
		EndDate:         stats.EndDate(),
	}
	for _, sym := range stats.Dropped {
		report.Warnings = append(report.Warnings, fmt.Sprintf("no usable prices for %s, excluded from analysis", sym))
	}

	maxSharpe, err := sess.MaxSharpe(ctx)
	if err != nil {
		if ctxErr(err) {
			return nil, err
		}
		report.Warnings = append(report.Warnings, err.Error())
	}
	report.MaxSharpePortfolio = maxSharpe

	minVar, err := sess.MinVariance(ctx)
	if err != nil {
		if ctxErr(err) {
			return nil, err
		}
		report.Warnings = append(report.Warnings, err.Error())
	}
	report.MinVariancePortfolio = minVar

	if minVar != nil {
		frontier, err := sess.frontierFrom(ctx, minVar, maxSharpe, s.cfg.FrontierPoints)
		if err != nil {
			if ctxErr(err) {
				return nil, err
			}
			report.Warnings = append(report.Warnings, err.Error())
		}
		report.EfficientFrontier = frontier
	} else {
		report.Warnings = append(report.Warnings, "efficient frontier skipped: minimum variance portfolio unavailable")
	}

	corr, err := sess.Correlation()
	if err != nil {
		report.Warnings = append(report.Warnings, err.Error())
	}
	report.CorrelationMatrix = corr

	for _, w := range report.Warnings {
		s.log.Warn().Strs("symbols", report.Symbols).Msg(w)
	}

	s.record(ctx, HistoryEntry{Kind: HistoryKindAnalysis, Symbols: report.Symbols, Period: report.Period, Payload: report})

	s.log.Info().
		Strs("symbols", report.Symbols).
		Int("data_points", report.DataPoints).
		Int("warnings", len(report.Warnings)).
		Dur("duration", time.Since(start)).
		Msg("Portfolio analysis complete")

	return report, nil
}

// Optimize runs a single optimization mode. For ModeTargetReturn an
// unattainable target yields a result with Success false.
func (s *Service) Optimize(ctx context.Context, req Request, mode Mode, target *float64) (*OptimizationResult, error) {
	sess, err := s.Session(ctx, req)
	if err != nil {
		return nil, err
	}
	res, err := sess.Optimize(ctx, mode, target)
	if err != nil {
		return nil, err
	}
	s.record(ctx, HistoryEntry{Kind: HistoryKindOptimization, Symbols: sess.Symbols(), Period: s.period(req), Payload: res})
	return res, nil
}

// Frontier computes the efficient frontier. numPoints <= 0 uses the
// configured default.
func (s *Service) Frontier(ctx context.Context, req Request, numPoints int) (*Frontier, error) {
	if numPoints <= 0 {
		numPoints = s.cfg.FrontierPoints
	}
	sess, err := s.Session(ctx, req)
	if err != nil {
		return nil, err
	}
	return sess.EfficientFrontier(ctx, numPoints)
}

// MonteCarlo samples random portfolios. numPortfolios <= 0 uses the
// configured default.
func (s *Service) MonteCarlo(ctx context.Context, req Request, numPortfolios int, seed *uint64) (*MonteCarloResult, error) {
	if numPortfolios <= 0 {
		numPortfolios = s.cfg.MonteCarloPortfolios
	}
	sess, err := s.Session(ctx, req)
	if err != nil {
		return nil, err
	}
	return sess.MonteCarlo(ctx, numPortfolios, seed)
}

// Correlation returns the correlation matrix of daily returns.
func (s *Service) Correlation(ctx context.Context, req Request) (*CorrelationMatrix, error) {
	sess, err := s.Session(ctx, req)
	if err != nil {
		return nil, err
	}
	return sess.Correlation()
}

// NormalizeSymbols trims and upper-cases symbols and rejects blanks,
// duplicates and universes smaller than two.
func NormalizeSymbols(symbols []string) ([]string, error) {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, raw := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(raw))
		if sym == "" {
			return nil, fmt.Errorf("%w: empty symbol", ErrInvalidInput)
		}
		if _, dup := seen[sym]; dup {
			return nil, fmt.Errorf("%w: duplicate symbol %s", ErrInvalidInput, sym)
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	if len(out) < MinAssets {
		return nil, &InsufficientAssetsError{Have: len(out), Need: MinAssets}
	}
	return out, nil
}

func (s *Service) statistics(ctx context.Context, symbols []string, period string) (*Statistics, error) {
	key := statisticsKey(symbols, period, s.cfg.MinObservations)
	if s.cache != nil {
		if data, ok := s.cache.GetOptimizer(CacheKindStatistics, key); ok {
			stats, err := DecodeStatistics(data)
			if err == nil {
				s.log.Debug().Str("key", key[:8]).Msg("Using cached statistics")
				return stats, nil
			}
			s.log.Warn().Err(err).Msg("Failed to decode cached statistics, recalculating")
		}
	}

	if s.loader == nil {
		return nil, fmt.Errorf("%w: no price loader configured", ErrPricesNotFound)
	}
	prices, err := s.loader.LoadPrices(ctx, symbols, period)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}

	stats, err := Prepare(prices, s.cfg.MinObservations)
	if err != nil {
		return nil, err
	}
	s.log.Debug().
		Int("assets", stats.NumAssets()).
		Int("observations", stats.Observations).
		Msg("Prepared statistics")

	if s.cache != nil {
		if data, err := EncodeStatistics(stats); err != nil {
			s.log.Warn().Err(err).Msg("Failed to encode statistics")
		} else if err := s.cache.SetOptimizer(CacheKindStatistics, key, data, s.cfg.StatisticsCacheTTL); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache statistics")
		}
	}
	return stats, nil
}

func (s *Service) record(ctx context.Context, entry HistoryEntry) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("kind", entry.Kind).Msg("Failed to record analysis history")
	}
}

func (s *Service) period(req Request) string {
	if p := strings.TrimSpace(req.Period); p != "" {
		return p
	}
	return s.cfg.DefaultPeriod
}

func (s *Service) riskFreeRate(req Request) float64 {
	if req.RiskFreeRate != nil {
		return *req.RiskFreeRate
	}
	return s.cfg.RiskFreeRate
}

func ctxErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
