package database

// schemas maps database names to their DDL. history.db holds the price
// table and analysis history; cache.db holds expiring optimizer blobs.
var schemas = map[string]string{
	"history": `
CREATE TABLE IF NOT EXISTS daily_prices (
    symbol TEXT NOT NULL,
    date INTEGER NOT NULL, -- unix seconds, midnight UTC
    close REAL NOT NULL,
    PRIMARY KEY (symbol, date)
) STRICT;

CREATE INDEX IF NOT EXISTS idx_daily_prices_date ON daily_prices(date);

CREATE TABLE IF NOT EXISTS analysis_history (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    symbols TEXT NOT NULL,
    period TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at INTEGER NOT NULL
) STRICT;

CREATE INDEX IF NOT EXISTS idx_analysis_history_created ON analysis_history(created_at);

CREATE TABLE IF NOT EXISTS analysis_history_symbols (
    history_id TEXT NOT NULL REFERENCES analysis_history(id) ON DELETE CASCADE,
    symbol TEXT NOT NULL,
    PRIMARY KEY (history_id, symbol)
) STRICT;

CREATE INDEX IF NOT EXISTS idx_analysis_history_symbols_symbol ON analysis_history_symbols(symbol);
`,
	"cache": `
CREATE TABLE IF NOT EXISTS optimizer_cache (
    kind TEXT NOT NULL,
    key TEXT NOT NULL,
    value BLOB NOT NULL,
    expires_at INTEGER NOT NULL,
    PRIMARY KEY (kind, key)
) STRICT;

CREATE INDEX IF NOT EXISTS idx_optimizer_cache_expires ON optimizer_cache(expires_at);
`,
}
