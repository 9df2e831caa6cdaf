// Package di provides dependency injection wiring and initialization.
package di

import (
	"errors"

	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/calculations"
	"github.com/aristath/frontier/internal/modules/history"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/modules/prices"
	"github.com/aristath/frontier/internal/reliability"
	"github.com/aristath/frontier/internal/scheduler"
)

// Container holds all dependencies for the application. It is created by
// Wire and shared by the server and the CLI.
type Container struct {
	// Databases
	HistoryDB *database.DB // prices and analysis history
	CacheDB   *database.DB // ephemeral optimizer cache

	// Repositories
	PriceRepo   *prices.Repository
	HistoryRepo *history.Repository
	Cache       *calculations.Cache

	// Services
	CSVCache            *prices.CSVCache
	PriceLoader         *prices.ChainLoader
	Importer            *prices.Importer
	OptimizationService *optimization.Service
	BackupService       *reliability.BackupService // nil when no bucket is configured

	Scheduler *scheduler.Scheduler
}

// Databases returns the open databases keyed by name
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB, 2)
	if c.HistoryDB != nil {
		dbs["history"] = c.HistoryDB
	}
	if c.CacheDB != nil {
		dbs["cache"] = c.CacheDB
	}
	return dbs
}

// Close closes all databases
func (c *Container) Close() error {
	var errs []error
	for _, db := range []*database.DB{c.HistoryDB, c.CacheDB} {
		if db != nil {
			errs = append(errs, db.Close())
		}
	}
	return errors.Join(errs...)
}

// JobInstances holds the background jobs for manual triggering via API.
// Backup is nil when backups are disabled.
type JobInstances struct {
	CacheCleanup      scheduler.Job
	HistoryPrune      scheduler.Job
	CheckDatabases    scheduler.Job
	WALCheckpoints    scheduler.Job
	DailyMaintenance  scheduler.Job
	WeeklyMaintenance scheduler.Job
	Backup            scheduler.Job
}

// All returns the non-nil jobs
func (j *JobInstances) All() []scheduler.Job {
	var out []scheduler.Job
	for _, job := range []scheduler.Job{
		j.CacheCleanup,
		j.HistoryPrune,
		j.CheckDatabases,
		j.WALCheckpoints,
		j.DailyMaintenance,
		j.WeeklyMaintenance,
		j.Backup,
	} {
		if job != nil {
			out = append(out, job)
		}
	}
	return out
}
