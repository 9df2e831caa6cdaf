package di

import (
	"context"
	"fmt"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/modules/prices"
	"github.com/aristath/frontier/internal/reliability"
	"github.com/rs/zerolog"
)

// ServiceConfigFrom maps application settings onto the optimization service
func ServiceConfigFrom(cfg *config.Config) optimization.ServiceConfig {
	svcCfg := optimization.DefaultServiceConfig()
	svcCfg.RiskFreeRate = cfg.Analysis.RiskFreeRate
	svcCfg.DefaultPeriod = cfg.Analysis.DefaultPeriod
	svcCfg.MinObservations = cfg.Analysis.MinObservations
	svcCfg.FrontierPoints = cfg.Analysis.FrontierPoints
	svcCfg.MonteCarloPortfolios = cfg.Analysis.MonteCarloPortfolios
	svcCfg.MonteCarloRespectBounds = cfg.Analysis.MonteCarloRespectBounds
	svcCfg.StatisticsCacheTTL = cfg.Analysis.StatisticsCacheTTL
	svcCfg.Workers = cfg.Optimizer.Workers
	if cfg.Optimizer.MaxIterations > 0 {
		svcCfg.Solver.MaxIterations = cfg.Optimizer.MaxIterations
	}
	if cfg.Optimizer.Tolerance > 0 {
		svcCfg.Solver.Tolerance = cfg.Optimizer.Tolerance
	}
	return svcCfg
}

// InitializeServices creates the price loader, optimizer and backup service
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container.PriceRepo == nil {
		return fmt.Errorf("repositories must be initialized first")
	}

	container.CSVCache = prices.NewCSVCache(cfg.PriceCacheDir, log)
	container.PriceLoader = prices.NewChainLoader(container.PriceRepo, container.CSVCache, log)
	container.Importer = prices.NewImporter(container.PriceRepo, container.Cache, log)

	svc := optimization.NewService(container.PriceLoader, ServiceConfigFrom(cfg), log)
	if cfg.Analysis.StatisticsCacheTTL > 0 {
		svc.SetCache(container.Cache)
	}
	if cfg.Analysis.RecordHistory {
		svc.SetHistoryRecorder(container.HistoryRepo)
	}
	container.OptimizationService = svc

	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Store(ctx, reliability.S3Config{
			Bucket:          cfg.Backup.Bucket,
			Region:          cfg.Backup.Region,
			Endpoint:        cfg.Backup.Endpoint,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create backup store: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			map[string]*database.DB{"history": container.HistoryDB},
			store,
			cfg.Backup.Prefix,
			cfg.Backup.Retention,
			cfg.DataDir,
			log,
		)
	} else {
		log.Info().Msg("Backups disabled, no bucket configured")
	}

	return nil
}
