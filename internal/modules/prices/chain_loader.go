package prices

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/rs/zerolog"
)

// ChainLoader serves prices from the repository and falls back to the CSV
// cache for symbols with no stored rows. Prices read from the cache are
// written through to the repository.
type ChainLoader struct {
	repo *Repository
	csv  *CSVCache
	log  zerolog.Logger
}

// NewChainLoader creates a loader over repo with an optional CSV fallback.
func NewChainLoader(repo *Repository, csv *CSVCache, log zerolog.Logger) *ChainLoader {
	return &ChainLoader{
		repo: repo,
		csv:  csv,
		log:  log.With().Str("component", "price_loader").Logger(),
	}
}

// LoadPrices implements optimization.PriceLoader.
func (l *ChainLoader) LoadPrices(ctx context.Context, symbols []string, period string) (optimization.PriceMatrix, error) {
	if err := ValidatePeriod(period); err != nil {
		return optimization.PriceMatrix{}, err
	}

	series := make(map[string][]DailyPrice, len(symbols))
	var fromCache int
	for _, sym := range symbols {
		stored, err := l.repo.GetPrices(ctx, sym, time.Time{})
		if err != nil {
			return optimization.PriceMatrix{}, err
		}
		if len(stored) > 0 {
			series[sym] = stored
			continue
		}
		if l.csv == nil {
			continue
		}

		cached, err := l.csv.ReadSeries(sym, period)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				l.log.Warn().Err(err).Str("symbol", sym).Msg("Failed to read cached prices")
			}
			continue
		}
		if len(cached) == 0 {
			continue
		}
		series[sym] = cached
		fromCache++

		if _, err := l.repo.UpsertPrices(ctx, sym, cached); err != nil {
			l.log.Warn().Err(err).Str("symbol", sym).Msg("Failed to store cached prices")
		}
	}

	l.log.Debug().
		Int("symbols", len(symbols)).
		Int("found", len(series)).
		Int("from_csv", fromCache).
		Msg("Loaded prices")

	return Align(symbols, series, period)
}
