package prices

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aristath/frontier/internal/modules/optimization"
)

// Align builds a price matrix over the union of dates of all series,
// restricted to the period window ending at the latest date seen. Gaps are
// NaN. Symbols without a series become all-NaN columns so that the
// statistics step reports them as dropped.
func Align(symbols []string, series map[string][]DailyPrice, period string) (optimization.PriceMatrix, error) {
	var latest time.Time
	for _, s := range series {
		for _, p := range s {
			if p.Date.After(latest) {
				latest = p.Date
			}
		}
	}
	if latest.IsZero() {
		return optimization.PriceMatrix{}, fmt.Errorf("%w: no prices for %v", optimization.ErrPricesNotFound, symbols)
	}

	start, err := periodStart(period, latest)
	if err != nil {
		return optimization.PriceMatrix{}, err
	}

	dateSet := make(map[time.Time]struct{})
	for _, s := range series {
		for _, p := range s {
			if !p.Date.Before(start) {
				dateSet[p.Date] = struct{}{}
			}
		}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	row := make(map[time.Time]int, len(dates))
	matrix := make([][]float64, len(dates))
	for i, d := range dates {
		row[d] = i
		matrix[i] = make([]float64, len(symbols))
		for j := range matrix[i] {
			matrix[i][j] = math.NaN()
		}
	}
	for j, sym := range symbols {
		for _, p := range series[sym] {
			if i, ok := row[p.Date]; ok {
				matrix[i][j] = p.Close
			}
		}
	}

	return optimization.PriceMatrix{
		Symbols: append([]string(nil), symbols...),
		Dates:   dates,
		Prices:  matrix,
	}, nil
}
