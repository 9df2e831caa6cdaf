package di

import (
	"fmt"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/modules/calculations"
	"github.com/aristath/frontier/internal/modules/history"
	"github.com/aristath/frontier/internal/reliability"
	"github.com/aristath/frontier/internal/scheduler"
	"github.com/rs/zerolog"
)

// Fixed schedules for health checks (seconds field first)
const (
	checkDatabasesSchedule = "0 15 * * * *"
	walCheckpointSchedule  = "0 */10 * * * *"
)

// RegisterJobs creates the background jobs and registers them with a new
// scheduler stored on the container. The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	sched := scheduler.New(log)
	dbs := container.Databases()

	instances := &JobInstances{
		CacheCleanup:      calculations.NewCleanupJob(container.Cache, log),
		HistoryPrune:      history.NewPruneJob(container.HistoryRepo, cfg.Analysis.HistoryRetentionDays, log),
		CheckDatabases:    scheduler.NewCheckDatabasesJob(dbs, log),
		WALCheckpoints:    scheduler.NewCheckWALCheckpointsJob(dbs, log),
		DailyMaintenance:  reliability.NewDailyMaintenanceJob(dbs, cfg.DataDir, log),
		WeeklyMaintenance: reliability.NewWeeklyMaintenanceJob(dbs, log),
	}
	if container.BackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.BackupService)
	}

	registrations := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.Jobs.CacheCleanupSchedule, instances.CacheCleanup},
		{cfg.Jobs.HistoryPruneSchedule, instances.HistoryPrune},
		{checkDatabasesSchedule, instances.CheckDatabases},
		{walCheckpointSchedule, instances.WALCheckpoints},
		{cfg.Jobs.DailyMaintenanceSchedule, instances.DailyMaintenance},
		{cfg.Jobs.WeeklyMaintenanceSchedule, instances.WeeklyMaintenance},
		{cfg.Backup.Schedule, instances.Backup},
	}
	for _, reg := range registrations {
		if reg.job == nil {
			continue
		}
		if reg.schedule == "" {
			log.Info().Str("job", reg.job.Name()).Msg("Job has no schedule, manual trigger only")
			continue
		}
		if err := sched.AddJob(reg.schedule, reg.job); err != nil {
			return nil, err
		}
	}

	container.Scheduler = sched
	return instances, nil
}
