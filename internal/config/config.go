// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir       string // Base directory for databases (always absolute)
	PriceCacheDir string // Directory holding <SYMBOL>_<period>_1d.csv files
	LogLevel      string
	LogPretty     bool
	Port          int
	DevMode       bool

	Analysis  AnalysisConfig
	Optimizer OptimizerConfig
	Jobs      JobsConfig
	Backup    BackupConfig
}

// AnalysisConfig holds the defaults applied to analysis requests
type AnalysisConfig struct {
	RiskFreeRate            float64
	DefaultPeriod           string
	MinObservations         int
	FrontierPoints          int
	MonteCarloPortfolios    int
	MonteCarloRespectBounds bool
	StatisticsCacheTTL      time.Duration
	HistoryRetentionDays    int
	RecordHistory           bool
}

// OptimizerConfig holds solver settings
type OptimizerConfig struct {
	Workers       int
	MaxIterations int
	Tolerance     float64
}

// JobsConfig holds cron schedules for background jobs (seconds field first)
type JobsConfig struct {
	HistoryPruneSchedule      string
	CacheCleanupSchedule      string
	DailyMaintenanceSchedule  string
	WeeklyMaintenanceSchedule string
}

// BackupConfig holds S3-compatible backup settings
type BackupConfig struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // Custom endpoint for R2/MinIO; empty uses AWS
	AccessKeyID     string
	SecretAccessKey string
	Schedule        string
	Retention       int
}

// Enabled reports whether a backup bucket is configured
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FRONTIER_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cacheDir := getEnv("PRICE_CACHE_DIR", filepath.Join(absDataDir, "cache"))
	absCacheDir, err := filepath.Abs(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve price cache path: %w", err)
	}

	cfg := &Config{
		DataDir:       absDataDir,
		PriceCacheDir: absCacheDir,
		Port:          getEnvAsInt("PORT", getEnvAsInt("GO_PORT", 8001)),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPretty:     getEnvAsBool("LOG_PRETTY", true),
		Analysis: AnalysisConfig{
			RiskFreeRate:            getEnvAsFloat("RISK_FREE_RATE", 0.02),
			DefaultPeriod:           getEnv("DEFAULT_PERIOD", "2y"),
			MinObservations:         getEnvAsInt("MIN_OBSERVATIONS", 20),
			FrontierPoints:          getEnvAsInt("FRONTIER_POINTS", 50),
			MonteCarloPortfolios:    getEnvAsInt("MONTE_CARLO_PORTFOLIOS", 10000),
			MonteCarloRespectBounds: getEnvAsBool("MONTE_CARLO_RESPECT_BOUNDS", false),
			StatisticsCacheTTL:      getEnvAsDuration("STATS_CACHE_TTL", 24*time.Hour),
			HistoryRetentionDays:    getEnvAsInt("HISTORY_RETENTION_DAYS", 90),
			RecordHistory:           getEnvAsBool("RECORD_HISTORY", true),
		},
		Optimizer: OptimizerConfig{
			Workers:       getEnvAsInt("OPTIMIZER_WORKERS", runtime.NumCPU()),
			MaxIterations: getEnvAsInt("OPTIMIZER_MAX_ITERATIONS", 5000),
			Tolerance:     getEnvAsFloat("OPTIMIZER_TOLERANCE", 1e-10),
		},
		Jobs: JobsConfig{
			HistoryPruneSchedule:      getEnv("HISTORY_PRUNE_SCHEDULE", "0 30 3 * * *"),
			CacheCleanupSchedule:      getEnv("CACHE_CLEANUP_SCHEDULE", "0 0 * * * *"),
			DailyMaintenanceSchedule:  getEnv("DAILY_MAINTENANCE_SCHEDULE", "0 0 2 * * *"),
			WeeklyMaintenanceSchedule: getEnv("WEEKLY_MAINTENANCE_SCHEDULE", "0 0 3 * * 0"),
		},
		Backup: BackupConfig{
			Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
			Prefix:          getEnv("BACKUP_S3_PREFIX", "frontier/"),
			Region:          getEnv("BACKUP_S3_REGION", "auto"),
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
			Schedule:        getEnv("BACKUP_SCHEDULE", "0 0 4 * * *"),
			Retention:       getEnvAsInt("BACKUP_RETENTION", 7),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if configuration values are usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Analysis.MinObservations < 2 {
		return fmt.Errorf("MIN_OBSERVATIONS must be at least 2, got %d", c.Analysis.MinObservations)
	}
	if c.Analysis.FrontierPoints < 1 {
		return fmt.Errorf("FRONTIER_POINTS must be positive, got %d", c.Analysis.FrontierPoints)
	}
	if c.Analysis.MonteCarloPortfolios < 0 {
		return fmt.Errorf("MONTE_CARLO_PORTFOLIOS must not be negative, got %d", c.Analysis.MonteCarloPortfolios)
	}
	if strings.TrimSpace(c.Analysis.DefaultPeriod) == "" {
		return fmt.Errorf("DEFAULT_PERIOD must not be empty")
	}
	if c.Optimizer.Workers < 1 {
		c.Optimizer.Workers = 1
	}
	if c.Optimizer.MaxIterations < 1 {
		return fmt.Errorf("OPTIMIZER_MAX_ITERATIONS must be positive, got %d", c.Optimizer.MaxIterations)
	}
	if c.Optimizer.Tolerance <= 0 {
		return fmt.Errorf("OPTIMIZER_TOLERANCE must be positive, got %g", c.Optimizer.Tolerance)
	}
	if c.Backup.Enabled() && c.Backup.Retention < 1 {
		return fmt.Errorf("BACKUP_RETENTION must be positive when backups are enabled")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
