package di

import (
	"path/filepath"
	"testing"

	"github.com/aristath/frontier/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDatabases(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &config.Config{DataDir: tmpDir}

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	assert.NotNil(t, container.HistoryDB)
	assert.NotNil(t, container.CacheDB)
	assert.FileExists(t, filepath.Join(tmpDir, "history.db"))
	assert.FileExists(t, filepath.Join(tmpDir, "cache.db"))

	dbs := container.Databases()
	assert.Len(t, dbs, 2)
	assert.Same(t, container.HistoryDB, dbs["history"])

	for _, table := range []string{"daily_prices", "analysis_history"} {
		var name string
		err := container.HistoryDB.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, table)
	}
	var name string
	err = container.CacheDB.Conn().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='optimizer_cache'").Scan(&name)
	assert.NoError(t, err)
}

func TestInitializeRepositories_RequiresDatabases(t *testing.T) {
	assert.Error(t, InitializeRepositories(&Container{}, zerolog.Nop()))
	assert.Error(t, InitializeRepositories(nil, zerolog.Nop()))
}
