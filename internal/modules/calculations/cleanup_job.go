package calculations

import (
	"github.com/aristath/frontier/internal/scheduler/base"
	"github.com/rs/zerolog"
)

// CleanupJob removes expired optimizer cache entries.
type CleanupJob struct {
	base.JobBase
	cache *Cache
	log   zerolog.Logger
}

// NewCleanupJob creates a new cache cleanup job.
func NewCleanupJob(cache *Cache, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		cache: cache,
		log:   log.With().Str("job", "optimizer_cache_cleanup").Logger(),
	}
}

// Run deletes expired entries.
func (j *CleanupJob) Run() error {
	deleted, err := j.cache.Cleanup()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to clean up optimizer cache")
		return err
	}
	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Cleaned up expired cache entries")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "optimizer_cache_cleanup"
}
