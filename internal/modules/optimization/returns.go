package optimization

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aristath/frontier/pkg/formulas"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultMinObservations is the floor on aligned return rows below which
	// the covariance estimate is considered unstable.
	DefaultMinObservations = 20
	// MinAssets is the smallest universe an analysis accepts.
	MinAssets = 2
)

// Statistics is the prepared state of an analysis: aligned prices, daily
// returns and their annualized mean and covariance. Treat as read-only.
type Statistics struct {
	Symbols      []string
	Dates        []time.Time // dates of the aligned price rows
	Prices       *mat.Dense  // T x N aligned prices
	Returns      *mat.Dense  // (T-1) x N simple returns
	MeanReturns  []float64   // annualized
	Covariance   *mat.SymDense
	Observations int
	Dropped      []string // symbols removed for having no usable prices
}

// StartDate is the first aligned price date.
func (s *Statistics) StartDate() time.Time {
	if len(s.Dates) == 0 {
		return time.Time{}
	}
	return s.Dates[0]
}

// EndDate is the last aligned price date.
func (s *Statistics) EndDate() time.Time {
	if len(s.Dates) == 0 {
		return time.Time{}
	}
	return s.Dates[len(s.Dates)-1]
}

// NumAssets is the size of the prepared universe.
func (s *Statistics) NumAssets() int {
	return len(s.Symbols)
}

// Prepare aligns prices, converts them to simple returns and estimates the
// annualized mean vector and sample covariance (N-1 denominator).
//
// Assets with no usable price at all are dropped; rows where any remaining
// asset is missing are dropped. The function is pure.
func Prepare(prices PriceMatrix, minObservations int) (*Statistics, error) {
	if minObservations < 2 {
		minObservations = 2
	}
	if err := validatePriceMatrix(prices); err != nil {
		return nil, err
	}

	var keep []int
	var dropped []string
	for j, sym := range prices.Symbols {
		has := false
		for _, row := range prices.Prices {
			if usablePrice(row[j]) {
				has = true
				break
			}
		}
		if has {
			keep = append(keep, j)
		} else {
			dropped = append(dropped, sym)
		}
	}
	if len(keep) < MinAssets {
		return nil, &InsufficientAssetsError{Have: len(keep), Need: MinAssets}
	}

	var rows [][]float64
	var dates []time.Time
	for i, row := range prices.Prices {
		aligned := make([]float64, len(keep))
		complete := true
		for k, j := range keep {
			if !usablePrice(row[j]) {
				complete = false
				break
			}
			aligned[k] = row[j]
		}
		if complete {
			rows = append(rows, aligned)
			dates = append(dates, prices.Dates[i])
		}
	}

	observations := len(rows) - 1
	if observations < minObservations {
		if observations < 0 {
			observations = 0
		}
		return nil, &InsufficientDataError{Observations: observations, Required: minObservations}
	}

	n := len(keep)
	symbols := make([]string, n)
	for k, j := range keep {
		symbols[k] = prices.Symbols[j]
	}

	priceMat := mat.NewDense(len(rows), n, nil)
	for i, row := range rows {
		priceMat.SetRow(i, row)
	}

	returns := mat.NewDense(observations, n, nil)
	col := make([]float64, len(rows))
	for j := 0; j < n; j++ {
		mat.Col(col, j, priceMat)
		returns.SetCol(j, formulas.CalculateReturns(col))
	}

	means := make([]float64, n)
	retCol := make([]float64, observations)
	for j := 0; j < n; j++ {
		mat.Col(retCol, j, returns)
		means[j] = formulas.AnnualizeMean(stat.Mean(retCol, nil))
	}

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, returns, nil)
	cov.ScaleSym(formulas.TradingDaysPerYear, cov)

	for i := 0; i < n; i++ {
		if !isFinite(means[i]) {
			return nil, fmt.Errorf("%w: non-finite mean return for %s", ErrInvalidInput, symbols[i])
		}
		for j := i; j < n; j++ {
			if !isFinite(cov.At(i, j)) {
				return nil, fmt.Errorf("%w: non-finite covariance for %s/%s", ErrInvalidInput, symbols[i], symbols[j])
			}
		}
	}

	return &Statistics{
		Symbols:      symbols,
		Dates:        dates,
		Prices:       priceMat,
		Returns:      returns,
		MeanReturns:  means,
		Covariance:   cov,
		Observations: observations,
		Dropped:      dropped,
	}, nil
}

func validatePriceMatrix(prices PriceMatrix) error {
	if len(prices.Symbols) < MinAssets {
		return &InsufficientAssetsError{Have: len(prices.Symbols), Need: MinAssets}
	}
	seen := make(map[string]struct{}, len(prices.Symbols))
	for _, sym := range prices.Symbols {
		if strings.TrimSpace(sym) == "" {
			return fmt.Errorf("%w: empty symbol", ErrInvalidInput)
		}
		if _, dup := seen[sym]; dup {
			return fmt.Errorf("%w: duplicate symbol %s", ErrInvalidInput, sym)
		}
		seen[sym] = struct{}{}
	}
	if len(prices.Dates) != len(prices.Prices) {
		return fmt.Errorf("%w: %d dates for %d price rows", ErrInvalidInput, len(prices.Dates), len(prices.Prices))
	}
	for i, row := range prices.Prices {
		if len(row) != len(prices.Symbols) {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidInput, i, len(row), len(prices.Symbols))
		}
		if i > 0 && !prices.Dates[i].After(prices.Dates[i-1]) {
			return fmt.Errorf("%w: dates not strictly increasing at row %d", ErrInvalidInput, i)
		}
	}
	return nil
}

func usablePrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
