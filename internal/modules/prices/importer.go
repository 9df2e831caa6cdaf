package prices

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/rs/zerolog"
)

// CacheInvalidator drops cached entries derived from prices.
type CacheInvalidator interface {
	Invalidate(kind string) (int64, error)
}

// Importer bulk-loads CSV cache files into the repository.
type Importer struct {
	repo  *Repository
	cache CacheInvalidator
	log   zerolog.Logger
}

// NewImporter creates an importer. cache may be nil.
func NewImporter(repo *Repository, cache CacheInvalidator, log zerolog.Logger) *Importer {
	return &Importer{
		repo:  repo,
		cache: cache,
		log:   log.With().Str("component", "price_importer").Logger(),
	}
}

// ImportDirectory loads every *_1d.csv file of dir. Files that fail to
// parse are reported in the summary and do not abort the import.
func (i *Importer) ImportDirectory(ctx context.Context, dir string) (*ImportSummary, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*_1d.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	sort.Strings(files)

	summary := &ImportSummary{Failed: make(map[string]string)}
	seen := make(map[string]bool)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		name := filepath.Base(path)
		symbol, ok := SymbolFromFileName(name)
		if !ok {
			summary.Failed[name] = "unrecognized file name"
			continue
		}

		series, err := ReadCSVFile(path)
		if err != nil {
			summary.Failed[name] = err.Error()
			i.log.Warn().Err(err).Str("file", name).Msg("Failed to parse price file")
			continue
		}
		n, err := i.repo.UpsertPrices(ctx, symbol, series)
		if err != nil {
			return summary, fmt.Errorf("failed to import %s: %w", name, err)
		}

		summary.Files++
		summary.Rows += n
		if !seen[symbol] {
			seen[symbol] = true
			summary.Symbols = append(summary.Symbols, symbol)
		}
	}

	if summary.Rows > 0 && i.cache != nil {
		if _, err := i.cache.Invalidate(optimization.CacheKindStatistics); err != nil {
			i.log.Warn().Err(err).Msg("Failed to invalidate statistics cache")
		}
	}

	i.log.Info().
		Str("dir", dir).
		Int("files", summary.Files).
		Int("symbols", len(summary.Symbols)).
		Int("rows", summary.Rows).
		Int("failed", len(summary.Failed)).
		Msg("Price import complete")

	return summary, nil
}

// SymbolFromFileName extracts the symbol from "<SYMBOL>_<period>_1d.csv".
func SymbolFromFileName(name string) (string, bool) {
	stem, ok := strings.CutSuffix(name, "_1d.csv")
	if !ok {
		return "", false
	}
	idx := strings.LastIndex(stem, "_")
	if idx <= 0 {
		return "", false
	}
	return strings.ToUpper(stem[:idx]), true
}
