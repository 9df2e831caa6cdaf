// Package calculations provides the cache for expensive optimizer inputs.
// Entries are opaque blobs keyed by (kind, key) with an expiration timestamp.
package calculations

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Cache stores optimizer blobs in cache.db.
type Cache struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewCache creates a cache over the optimizer_cache table.
func NewCache(db *sql.DB, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		now: time.Now,
		log: log.With().Str("component", "calculations_cache").Logger(),
	}
}

// GetOptimizer returns the blob for (kind, key) if it has not expired.
func (c *Cache) GetOptimizer(kind, key string) ([]byte, bool) {
	var data []byte
	err := c.db.QueryRow(
		"SELECT value FROM optimizer_cache WHERE kind = ? AND key = ? AND expires_at > ?",
		kind, key, c.now().Unix(),
	).Scan(&data)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.log.Warn().Err(err).Str("kind", kind).Msg("Failed to read optimizer cache")
		}
		return nil, false
	}
	return data, true
}

// SetOptimizer stores data with expiration = now + ttl.
func (c *Cache) SetOptimizer(kind, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO optimizer_cache (kind, key, value, expires_at) VALUES (?, ?, ?, ?)",
		kind, key, data, c.now().Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store %s cache entry: %w", kind, err)
	}
	return nil
}

// Invalidate removes every entry of a kind. Price imports call this so that
// statistics are recomputed from the new rows.
func (c *Cache) Invalidate(kind string) (int64, error) {
	result, err := c.db.Exec("DELETE FROM optimizer_cache WHERE kind = ?", kind)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate %s cache: %w", kind, err)
	}
	return result.RowsAffected()
}

// Cleanup removes expired entries and returns how many were deleted.
func (c *Cache) Cleanup() (int64, error) {
	result, err := c.db.Exec("DELETE FROM optimizer_cache WHERE expires_at <= ?", c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// Count returns the number of live entries per kind.
func (c *Cache) Count() (map[string]int, error) {
	rows, err := c.db.Query(
		"SELECT kind, COUNT(*) FROM optimizer_cache WHERE expires_at > ? GROUP BY kind",
		c.now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count cache entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan cache count: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}
