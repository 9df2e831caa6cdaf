package prices

import (
	"fmt"
	"strings"
	"time"

	"github.com/aristath/frontier/internal/modules/optimization"
)

// periodStart returns the first date included in a lookback window ending
// at latest. A zero time means no lower bound.
func periodStart(period string, latest time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "1mo":
		return latest.AddDate(0, -1, 0), nil
	case "3mo":
		return latest.AddDate(0, -3, 0), nil
	case "6mo":
		return latest.AddDate(0, -6, 0), nil
	case "1y":
		return latest.AddDate(-1, 0, 0), nil
	case "", "2y":
		return latest.AddDate(-2, 0, 0), nil
	case "5y":
		return latest.AddDate(-5, 0, 0), nil
	case "10y":
		return latest.AddDate(-10, 0, 0), nil
	case "ytd":
		return time.Date(latest.Year(), 1, 1, 0, 0, 0, 0, time.UTC), nil
	case "max":
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown period %q", optimization.ErrInvalidInput, period)
	}
}

// ValidatePeriod reports whether period is a supported lookback token.
func ValidatePeriod(period string) error {
	_, err := periodStart(period, time.Now())
	return err
}
