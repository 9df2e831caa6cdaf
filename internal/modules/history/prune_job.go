package history

import (
	"context"
	"time"

	"github.com/aristath/frontier/internal/scheduler/base"
	"github.com/rs/zerolog"
)

// PruneJob deletes history entries older than the retention window.
type PruneJob struct {
	base.JobBase
	repo      *Repository
	retention time.Duration
	log       zerolog.Logger
}

// NewPruneJob creates a prune job keeping retentionDays of history.
func NewPruneJob(repo *Repository, retentionDays int, log zerolog.Logger) *PruneJob {
	return &PruneJob{
		repo:      repo,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		log:       log.With().Str("job", "history_prune").Logger(),
	}
}

// Run executes the prune.
func (j *PruneJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := j.repo.now().Add(-j.retention)
	deleted, err := j.repo.PruneOlderThan(ctx, cutoff)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to prune analysis history")
		return err
	}
	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("Pruned analysis history")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *PruneJob) Name() string {
	return "history_prune"
}
