package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FRONTIER_DATA_DIR", dir)
	t.Setenv("PORT", "")
	t.Setenv("GO_PORT", "")
	t.Setenv("RISK_FREE_RATE", "")
	t.Setenv("MIN_OBSERVATIONS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, 8001, cfg.Port)
	assert.InDelta(t, 0.02, cfg.Analysis.RiskFreeRate, 1e-12)
	assert.Equal(t, "2y", cfg.Analysis.DefaultPeriod)
	assert.Equal(t, 20, cfg.Analysis.MinObservations)
	assert.Equal(t, 50, cfg.Analysis.FrontierPoints)
	assert.Equal(t, 24*time.Hour, cfg.Analysis.StatisticsCacheTTL)
	assert.False(t, cfg.Analysis.MonteCarloRespectBounds)
	assert.Equal(t, 5000, cfg.Optimizer.MaxIterations)
	assert.Equal(t, "0 0 3 * * 0", cfg.Jobs.WeeklyMaintenanceSchedule)
	assert.False(t, cfg.Backup.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FRONTIER_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9100")
	t.Setenv("RISK_FREE_RATE", "0.035")
	t.Setenv("MONTE_CARLO_RESPECT_BOUNDS", "true")
	t.Setenv("STATS_CACHE_TTL", "90m")
	t.Setenv("BACKUP_S3_BUCKET", "backups")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.InDelta(t, 0.035, cfg.Analysis.RiskFreeRate, 1e-12)
	assert.True(t, cfg.Analysis.MonteCarloRespectBounds)
	assert.Equal(t, 90*time.Minute, cfg.Analysis.StatisticsCacheTTL)
	assert.True(t, cfg.Backup.Enabled())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:      8001,
			Analysis:  AnalysisConfig{MinObservations: 20, FrontierPoints: 50, DefaultPeriod: "2y"},
			Optimizer: OptimizerConfig{Workers: 2, MaxIterations: 100, Tolerance: 1e-8},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Port = 0 }, true},
		{"min observations too small", func(c *Config) { c.Analysis.MinObservations = 1 }, true},
		{"no frontier points", func(c *Config) { c.Analysis.FrontierPoints = 0 }, true},
		{"empty period", func(c *Config) { c.Analysis.DefaultPeriod = " " }, true},
		{"zero tolerance", func(c *Config) { c.Optimizer.Tolerance = 0 }, true},
		{"backup without retention", func(c *Config) { c.Backup = BackupConfig{Bucket: "b"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
