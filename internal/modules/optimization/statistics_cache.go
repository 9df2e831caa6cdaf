package optimization

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
)

// CacheKindStatistics is the cache kind under which prepared statistics
// are stored.
const CacheKindStatistics = "statistics"

// BlobCache is an expiring byte cache, satisfied by calculations.Cache.
type BlobCache interface {
	GetOptimizer(kind, key string) ([]byte, bool)
	SetOptimizer(kind, key string, data []byte, ttl time.Duration) error
}

// cachedStatistics is the msgpack form of Statistics.
type cachedStatistics struct {
	Symbols      []string  `msgpack:"symbols"`
	Dates        []int64   `msgpack:"dates"`
	Prices       []float64 `msgpack:"prices"`
	Returns      []float64 `msgpack:"returns"`
	MeanReturns  []float64 `msgpack:"mean_returns"`
	Covariance   []float64 `msgpack:"covariance"`
	Observations int       `msgpack:"observations"`
	Dropped      []string  `msgpack:"dropped"`
}

// statisticsKey identifies prepared statistics. Symbol order matters
// because it fixes the vector layout.
func statisticsKey(symbols []string, period string, minObservations int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d", strings.Join(symbols, ","), period, minObservations)
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// EncodeStatistics serializes prepared statistics with msgpack.
func EncodeStatistics(s *Statistics) ([]byte, error) {
	n := s.NumAssets()
	dates := make([]int64, len(s.Dates))
	for i, d := range s.Dates {
		dates[i] = d.Unix()
	}
	cov := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			cov[i*n+j] = s.Covariance.At(i, j)
		}
	}
	return msgpack.Marshal(cachedStatistics{
		Symbols:      s.Symbols,
		Dates:        dates,
		Prices:       denseData(s.Prices),
		Returns:      denseData(s.Returns),
		MeanReturns:  s.MeanReturns,
		Covariance:   cov,
		Observations: s.Observations,
		Dropped:      s.Dropped,
	})
}

// DecodeStatistics restores statistics written by EncodeStatistics.
func DecodeStatistics(data []byte) (*Statistics, error) {
	var c cachedStatistics
	if err := msgpack.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode statistics: %w", err)
	}
	n := len(c.Symbols)
	if n < MinAssets || len(c.MeanReturns) != n || len(c.Covariance) != n*n ||
		len(c.Returns) != c.Observations*n || len(c.Prices) != len(c.Dates)*n || c.Observations < 1 {
		return nil, fmt.Errorf("%w: cached statistics are malformed", ErrInvalidInput)
	}

	dates := make([]time.Time, len(c.Dates))
	for i, d := range c.Dates {
		dates[i] = time.Unix(d, 0).UTC()
	}
	var prices *mat.Dense
	if len(c.Dates) > 0 {
		prices = mat.NewDense(len(c.Dates), n, c.Prices)
	}

	return &Statistics{
		Symbols:      c.Symbols,
		Dates:        dates,
		Prices:       prices,
		Returns:      mat.NewDense(c.Observations, n, c.Returns),
		MeanReturns:  c.MeanReturns,
		Covariance:   mat.NewSymDense(n, c.Covariance),
		Observations: c.Observations,
		Dropped:      c.Dropped,
	}, nil
}

func denseData(m *mat.Dense) []float64 {
	if m == nil {
		return nil
	}
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}
