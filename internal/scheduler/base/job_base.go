// Package base provides base implementation for scheduler jobs.
package base

import (
	"sync"
	"time"
)

// RunInfo describes the most recent run of a job.
type RunInfo struct {
	At   time.Time // zero if the job has not run yet
	Err  error
	Runs int
}

// JobBase records the outcome of the most recent run. Jobs embed it and the
// scheduler reports each run through RecordRun.
type JobBase struct {
	mu   sync.RWMutex
	info RunInfo
}

// RecordRun stores the completion time and error of a run.
func (j *JobBase) RecordRun(at time.Time, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.info.At = at
	j.info.Err = err
	j.info.Runs++
}

// LastRun returns the outcome of the most recent run.
func (j *JobBase) LastRun() RunInfo {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.info
}
