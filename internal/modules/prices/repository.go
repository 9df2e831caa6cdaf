package prices

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/rs/zerolog"
)

// Repository provides access to the daily_prices table in history.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new price repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "price_repository").Logger(),
	}
}

// UpsertPrices inserts or replaces the prices of one symbol in a single
// transaction and returns the number of rows written.
func (r *Repository) UpsertPrices(ctx context.Context, symbol string, prices []DailyPrice) (int, error) {
	if len(prices) == 0 {
		return 0, nil
	}

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO daily_prices (symbol, date, close)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, p := range prices {
			if _, err := stmt.ExecContext(ctx, symbol, p.Date.Unix(), p.Close); err != nil {
				return fmt.Errorf("failed to insert price for %s on %s: %w", symbol, p.Date.Format(dateLayout), err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.log.Debug().
		Str("symbol", symbol).
		Int("count", len(prices)).
		Msg("Upserted daily prices")

	return len(prices), nil
}

// GetPrices returns the stored prices of symbol on or after from, ordered
// by date ascending. A zero from returns the full history.
func (r *Repository) GetPrices(ctx context.Context, symbol string, from time.Time) ([]DailyPrice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, close
		FROM daily_prices
		WHERE symbol = ? AND date >= ?
		ORDER BY date ASC
	`, symbol, from.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var prices []DailyPrice
	for rows.Next() {
		var dateUnix int64
		var p DailyPrice
		if err := rows.Scan(&dateUnix, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		p.Date = time.Unix(dateUnix, 0).UTC()
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return prices, nil
}

// GetPricesForPeriod returns the prices of symbol inside the lookback
// window ending at its latest stored date.
func (r *Repository) GetPricesForPeriod(ctx context.Context, symbol, period string) ([]DailyPrice, error) {
	var latest sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(date) FROM daily_prices WHERE symbol = ?", symbol).Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to query latest date: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	start, err := periodStart(period, time.Unix(latest.Int64, 0).UTC())
	if err != nil {
		return nil, err
	}
	return r.GetPrices(ctx, symbol, start)
}

// ListSymbols summarizes every stored symbol.
func (r *Repository) ListSymbols(ctx context.Context) ([]SymbolSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, COUNT(*), MIN(date), MAX(date)
		FROM daily_prices
		GROUP BY symbol
		ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	var out []SymbolSummary
	for rows.Next() {
		var s SymbolSummary
		var first, last int64
		if err := rows.Scan(&s.Symbol, &s.Count, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan symbol summary: %w", err)
		}
		s.FirstDate = time.Unix(first, 0).UTC()
		s.LastDate = time.Unix(last, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// LoadPrices implements optimization.PriceLoader.
func (r *Repository) LoadPrices(ctx context.Context, symbols []string, period string) (optimization.PriceMatrix, error) {
	series := make(map[string][]DailyPrice, len(symbols))
	for _, sym := range symbols {
		s, err := r.GetPrices(ctx, sym, time.Time{})
		if err != nil {
			return optimization.PriceMatrix{}, err
		}
		if len(s) > 0 {
			series[sym] = s
		}
	}
	return Align(symbols, series, period)
}
