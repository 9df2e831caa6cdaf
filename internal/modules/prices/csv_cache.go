package prices

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/rs/zerolog"
)

// CSVCache reads the on-disk price cache laid out as
// <dir>/<SYMBOL>_<period>_1d.csv with Date and Close columns.
type CSVCache struct {
	dir string
	log zerolog.Logger
}

// NewCSVCache creates a reader for the cache directory.
func NewCSVCache(dir string, log zerolog.Logger) *CSVCache {
	return &CSVCache{
		dir: dir,
		log: log.With().Str("component", "csv_price_cache").Logger(),
	}
}

// Dir returns the cache directory.
func (c *CSVCache) Dir() string {
	return c.dir
}

// FileName returns the cache file name for a symbol and period.
func FileName(symbol, period string) string {
	return fmt.Sprintf("%s_%s_1d.csv", symbol, period)
}

// ReadSeries returns the cached series for symbol, preferring the file of
// the requested period and falling back to the default period file. The
// error wraps fs.ErrNotExist when neither exists.
func (c *CSVCache) ReadSeries(symbol, period string) ([]DailyPrice, error) {
	candidates := []string{FileName(symbol, DefaultPeriod)}
	if period != "" && period != DefaultPeriod {
		candidates = append([]string{FileName(symbol, period)}, candidates...)
	}

	for _, name := range candidates {
		series, err := ReadCSVFile(filepath.Join(c.dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return series, nil
	}
	return nil, fmt.Errorf("no cache file for %s: %w", symbol, fs.ErrNotExist)
}

// LoadPrices implements optimization.PriceLoader.
func (c *CSVCache) LoadPrices(ctx context.Context, symbols []string, period string) (optimization.PriceMatrix, error) {
	series := make(map[string][]DailyPrice, len(symbols))
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return optimization.PriceMatrix{}, err
		}
		s, err := c.ReadSeries(sym, period)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", sym).Msg("Cached prices unavailable")
			continue
		}
		series[sym] = s
	}
	return Align(symbols, series, period)
}

// ReadCSVFile parses a cached price file. The header row is the first row
// containing a "Close" column; the date is always the first column. Rows
// whose date or close does not parse (ticker and index rows written by
// some exporters, blank closes) are skipped. The result is sorted by date
// and later duplicates win.
func ReadCSVFile(path string) ([]DailyPrice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCSV(f)
}

// ParseCSV parses price rows from r. See ReadCSVFile.
func ParseCSV(r io.Reader) ([]DailyPrice, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	closeCol := -1
	byDate := make(map[time.Time]float64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}

		if closeCol < 0 {
			for i, name := range record {
				if strings.EqualFold(strings.TrimSpace(name), "close") {
					closeCol = i
					break
				}
			}
			continue
		}
		if len(record) <= closeCol {
			continue
		}

		date, err := ParseDate(strings.TrimSpace(record[0]))
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(record[closeCol]), 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		byDate[date] = value
	}

	if closeCol < 0 {
		return nil, errors.New("csv has no Close column")
	}

	out := make([]DailyPrice, 0, len(byDate))
	for d, v := range byDate {
		out = append(out, DailyPrice{Date: d, Close: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
