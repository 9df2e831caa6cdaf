// Package history stores analysis and optimization results so that past
// reports can be listed and retrieved.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("history entry not found")

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// Entry is a stored result. Payload is omitted by List.
type Entry struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Symbols   []string        `json:"symbols"`
	Period    string          `json:"period"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Stats summarizes the stored entries.
type Stats struct {
	Total          int            `json:"total"`
	ByKind         map[string]int `json:"by_kind"`
	TopSymbols     []SymbolCount  `json:"top_symbols"`
	RecentActivity []DayCount     `json:"recent_activity"`
}

// SymbolCount is the number of entries that include a symbol.
type SymbolCount struct {
	Symbol string `json:"symbol"`
	Count  int    `json:"count"`
}

// DayCount is the number of entries created on one UTC day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Stats limits
const (
	statsTopSymbols   = 10
	statsActivityDays = 7
)

// ListFilter selects entries for List. Zero values match everything.
type ListFilter struct {
	Symbol string
	Kind   string
	Limit  int
}

// Repository persists entries in the analysis_history table of history.db
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a new history repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("component", "history_repository").Logger(),
	}
}

// Record implements optimization.HistoryRecorder.
func (r *Repository) Record(ctx context.Context, entry optimization.HistoryEntry) error {
	_, err := r.Save(ctx, entry)
	return err
}

// Save stores entry and returns its id.
func (r *Repository) Save(ctx context.Context, entry optimization.HistoryEntry) (string, error) {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal history payload: %w", err)
	}

	id := uuid.New().String()
	createdAt := r.now().UTC()

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO analysis_history (id, kind, symbols, period, payload, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, entry.Kind, strings.Join(entry.Symbols, ","), entry.Period, string(payload), createdAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to insert history entry: %w", err)
		}

		for _, sym := range entry.Symbols {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO analysis_history_symbols (history_id, symbol) VALUES (?, ?)",
				id, sym,
			); err != nil {
				return fmt.Errorf("failed to index history symbol: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	r.log.Debug().
		Str("id", id).
		Str("kind", entry.Kind).
		Strs("symbols", entry.Symbols).
		Msg("Recorded history entry")

	return id, nil
}

// List returns entries newest first, without payloads.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := "SELECT h.id, h.kind, h.symbols, h.period, h.created_at FROM analysis_history h"
	var where []string
	var args []interface{}
	if filter.Symbol != "" {
		query += " JOIN analysis_history_symbols s ON s.history_id = h.id"
		where = append(where, "s.symbol = ?")
		args = append(args, strings.ToUpper(filter.Symbol))
	}
	if filter.Kind != "" {
		where = append(where, "h.kind = ?")
		args = append(args, filter.Kind)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY h.created_at DESC, h.id LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var symbols string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Kind, &symbols, &e.Period, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Symbols = splitSymbols(symbols)
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return entries, nil
}

// Get returns one entry with its payload.
func (r *Repository) Get(ctx context.Context, id string) (*Entry, error) {
	var e Entry
	var symbols, payload string
	var createdAt int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, kind, symbols, period, payload, created_at
		FROM analysis_history
		WHERE id = ?
	`, id).Scan(&e.ID, &e.Kind, &symbols, &e.Period, &payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}
	e.Symbols = splitSymbols(symbols)
	e.Payload = json.RawMessage(payload)
	e.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &e, nil
}

// Stats returns the entry count per kind, the most analyzed symbols and
// the daily entry counts of the last seven days, newest day first.
func (r *Repository) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByKind:         map[string]int{},
		TopSymbols:     []SymbolCount{},
		RecentActivity: []DayCount{},
	}

	rows, err := r.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM analysis_history GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("failed to count history by kind: %w", err)
	}
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan kind count: %w", err)
		}
		stats.ByKind[kind] = count
		stats.Total += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating kind counts: %w", err)
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT symbol, COUNT(*) AS n
		FROM analysis_history_symbols
		GROUP BY symbol
		ORDER BY n DESC, symbol
		LIMIT ?
	`, statsTopSymbols)
	if err != nil {
		return nil, fmt.Errorf("failed to count history symbols: %w", err)
	}
	for rows.Next() {
		var sc SymbolCount
		if err := rows.Scan(&sc.Symbol, &sc.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan symbol count: %w", err)
		}
		stats.TopSymbols = append(stats.TopSymbols, sc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbol counts: %w", err)
	}

	since := r.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -statsActivityDays)
	rows, err = r.db.QueryContext(ctx, `
		SELECT date(created_at / 1000, 'unixepoch') AS day, COUNT(*)
		FROM analysis_history
		WHERE created_at >= ?
		GROUP BY day
		ORDER BY day DESC
	`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query recent history activity: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		stats.RecentActivity = append(stats.RecentActivity, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}
	return stats, nil
}

// PruneOlderThan deletes entries created before cutoff and returns how
// many were removed.
func (r *Repository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM analysis_history_symbols
			WHERE history_id IN (SELECT id FROM analysis_history WHERE created_at < ?)
		`, cutoff.UnixMilli()); err != nil {
			return fmt.Errorf("failed to prune history symbols: %w", err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM analysis_history WHERE created_at < ?", cutoff.UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to prune history: %w", err)
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}

func splitSymbols(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
