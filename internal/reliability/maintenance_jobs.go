package reliability

import (
	"fmt"
	"sort"
	"time"

	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/scheduler/base"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// Free space thresholds for the data directory
const (
	criticalFreeBytes uint64 = 500 * 1000 * 1000
	lowFreeBytes      uint64 = 5 * 1000 * 1000 * 1000
)

// DailyMaintenanceJob checkpoints WAL files and watches free disk space
type DailyMaintenanceJob struct {
	base.JobBase
	databases map[string]*database.DB
	dataDir   string
	diskUsage func(path string) (*disk.UsageStat, error)
	log       zerolog.Logger
}

// NewDailyMaintenanceJob creates a new daily maintenance job
func NewDailyMaintenanceJob(databases map[string]*database.DB, dataDir string, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		diskUsage: disk.Usage,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Run executes the daily maintenance job
func (j *DailyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	for _, name := range databaseNames(j.databases) {
		if err := j.databases[name].WALCheckpoint("TRUNCATE"); err != nil {
			// Not fatal, the next run retries
			j.log.Warn().Str("database", name).Err(err).Msg("WAL checkpoint failed")
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.logDatabaseSizes()

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed")
	return nil
}

// Name returns the job name for scheduler
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

func (j *DailyMaintenanceJob) checkDiskSpace() error {
	usage, err := j.diskUsage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to read disk usage for %s: %w", j.dataDir, err)
	}

	availableGB := float64(usage.Free) / 1e9
	j.log.Debug().Float64("available_gb", availableGB).Float64("used_percent", usage.UsedPercent).Msg("Disk space check")

	switch {
	case usage.Free < criticalFreeBytes:
		j.log.Error().Float64("available_gb", availableGB).Msg("Insufficient disk space")
		return fmt.Errorf("only %.2f GB free in %s", availableGB, j.dataDir)
	case usage.Free < lowFreeBytes:
		j.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	}
	return nil
}

func (j *DailyMaintenanceJob) logDatabaseSizes() {
	for _, name := range databaseNames(j.databases) {
		stats, err := j.databases[name].GetStats()
		if err != nil {
			j.log.Error().Str("database", name).Err(err).Msg("Failed to get stats")
			continue
		}
		j.log.Info().
			Str("database", name).
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_bytes", stats.WALSizeBytes).
			Int64("freelist_pages", stats.FreelistCount).
			Msg("Database size")
	}
}

// WeeklyMaintenanceJob compacts databases and refreshes planner statistics
type WeeklyMaintenanceJob struct {
	base.JobBase
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewWeeklyMaintenanceJob creates a new weekly maintenance job
func NewWeeklyMaintenanceJob(databases map[string]*database.DB, log zerolog.Logger) *WeeklyMaintenanceJob {
	return &WeeklyMaintenanceJob{
		databases: databases,
		log:       log.With().Str("job", "weekly_maintenance").Logger(),
	}
}

// Run vacuums every database. A failure on one database does not stop the
// others; the first error is returned.
func (j *WeeklyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting weekly maintenance")
	startTime := time.Now()

	var firstErr error
	for _, name := range databaseNames(j.databases) {
		if err := j.vacuumDatabase(j.databases[name], name); err != nil {
			j.log.Error().Str("database", name).Err(err).Msg("VACUUM failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Weekly maintenance completed")
	return firstErr
}

// Name returns the job name for scheduler
func (j *WeeklyMaintenanceJob) Name() string {
	return "weekly_maintenance"
}

func (j *WeeklyMaintenanceJob) vacuumDatabase(db *database.DB, name string) error {
	before, _ := db.GetStats()

	if _, err := db.Conn().Exec("VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed for %s: %w", name, err)
	}
	if _, err := db.Conn().Exec("ANALYZE"); err != nil {
		return fmt.Errorf("ANALYZE failed for %s: %w", name, err)
	}

	after, _ := db.GetStats()
	if before != nil && after != nil {
		j.log.Info().
			Str("database", name).
			Int64("pages_before", before.PageCount).
			Int64("pages_after", after.PageCount).
			Msg("VACUUM completed")
	}
	return nil
}

func databaseNames(databases map[string]*database.DB) []string {
	names := make([]string, 0, len(databases))
	for name := range databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
