package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	JobBase
	name  string
	err   error
	calls int
}

func (j *countingJob) Run() error {
	j.calls++
	return j.err
}

func (j *countingJob) Name() string {
	return j.name
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("0 30 3 * * *", &countingJob{name: "prune"}))
	require.NoError(t, s.AddJob("@hourly", &countingJob{name: "cleanup"}))
	assert.Error(t, s.AddJob("not a schedule", &countingJob{name: "bad"}))

	status := s.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "cleanup", status[0].Name)
	assert.Equal(t, "prune", status[1].Name)
	assert.Equal(t, "0 30 3 * * *", status[1].Schedule)
	assert.Zero(t, status[1].Runs)
}

func TestScheduler_RunNowRecordsOutcome(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "backup", err: errors.New("bucket missing")}
	require.NoError(t, s.AddJob("@daily", job))

	err := s.RunNow(job)
	assert.EqualError(t, err, "bucket missing")
	assert.Equal(t, 1, job.calls)

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, 1, status[0].Runs)
	assert.Equal(t, "bucket missing", status[0].LastError)
	assert.False(t, status[0].LastRun.IsZero())

	job.err = nil
	require.NoError(t, s.RunNow(job))
	assert.Empty(t, s.Status()[0].LastError)
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("@every 1h", &countingJob{name: "idle"}))

	s.Start()
	assert.False(t, s.Status()[0].NextRun.IsZero())
	s.Stop()
}
