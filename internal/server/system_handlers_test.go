package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedJob struct{ name string }

func (j namedJob) Run() error   { return nil }
func (j namedJob) Name() string { return j.name }

type fakeScheduler struct {
	mu     sync.Mutex
	status []scheduler.JobStatus
	ran    chan string
}

func (f *fakeScheduler) Status() []scheduler.JobStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeScheduler) RunNow(job scheduler.Job) error {
	f.ran <- job.Name()
	return nil
}

func newTestSystemHandlers(t *testing.T, sched JobScheduler, jobs ...scheduler.Job) *SystemHandlers {
	t.Helper()
	h := NewSystemHandlers(zerolog.Nop(), t.TempDir(), nil, sched, jobs)
	h.cpuPercent = func(time.Duration, bool) ([]float64, error) { return []float64{12.5}, nil }
	h.virtualMemory = func() (*mem.VirtualMemoryStat, error) { return &mem.VirtualMemoryStat{UsedPercent: 40}, nil }
	h.diskUsage = func(string) (*disk.UsageStat, error) { return &disk.UsageStat{Free: 20e9, UsedPercent: 55}, nil }
	return h
}

func TestSystemHandlers_HandleSystemStatus(t *testing.T) {
	sched := &fakeScheduler{status: []scheduler.JobStatus{
		{Name: "backup"},
		{Name: "history_prune", LastError: "database is locked"},
	}}
	h := newTestSystemHandlers(t, sched)

	w := httptest.NewRecorder()
	h.HandleSystemStatus(w, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp SystemStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, 12.5, resp.CPUPercent)
	assert.Equal(t, 40.0, resp.MemoryPercent)
	assert.Equal(t, 20.0, resp.DiskFreeGB)
	assert.Equal(t, 55.0, resp.DiskUsedPercent)
	assert.Equal(t, 2, resp.Jobs)
	assert.Equal(t, 1, resp.FailingJobs)
	assert.Greater(t, resp.Goroutines, 0)
}

func TestSystemHandlers_HandleSystemStatus_MetricReadFailures(t *testing.T) {
	h := newTestSystemHandlers(t, nil)
	h.cpuPercent = func(time.Duration, bool) ([]float64, error) { return nil, errors.New("unsupported") }
	h.virtualMemory = func() (*mem.VirtualMemoryStat, error) { return nil, errors.New("unsupported") }
	h.diskUsage = func(string) (*disk.UsageStat, error) { return nil, errors.New("unsupported") }

	w := httptest.NewRecorder()
	h.HandleSystemStatus(w, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp SystemStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Zero(t, resp.CPUPercent)
	assert.Zero(t, resp.DiskFreeGB)
}

func TestSystemHandlers_HandleJobsStatus(t *testing.T) {
	next := time.Date(2026, 1, 1, 3, 30, 0, 0, time.UTC)
	sched := &fakeScheduler{status: []scheduler.JobStatus{{Name: "history_prune", Schedule: "0 30 3 * * *", NextRun: next}}}
	h := newTestSystemHandlers(t, sched)

	w := httptest.NewRecorder()
	h.HandleJobsStatus(w, httptest.NewRequest(http.MethodGet, "/api/system/jobs", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp JobsStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.TotalJobs)
	assert.Equal(t, "history_prune", resp.Jobs[0].Name)
	assert.True(t, next.Equal(resp.Jobs[0].NextRun))

	// No scheduler still renders an empty list
	h = newTestSystemHandlers(t, nil)
	w = httptest.NewRecorder()
	h.HandleJobsStatus(w, httptest.NewRequest(http.MethodGet, "/api/system/jobs", nil))
	assert.JSONEq(t, `{"total_jobs":0,"jobs":[]}`, w.Body.String())
}

func TestSystemHandlers_HandleTriggerJob(t *testing.T) {
	sched := &fakeScheduler{ran: make(chan string, 1)}
	h := newTestSystemHandlers(t, sched, namedJob{"backup"})

	r := chi.NewRouter()
	r.Post("/api/system/jobs/{name}", h.HandleTriggerJob)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/system/jobs/backup", nil))
	require.Equal(t, http.StatusAccepted, w.Code)

	select {
	case name := <-sched.ran:
		assert.Equal(t, "backup", name)
	case <-time.After(5 * time.Second):
		t.Fatal("job was not started")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/system/jobs/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Unknown job: unknown")
}

func TestSystemHandlers_HandleDatabaseStats(t *testing.T) {
	dir := t.TempDir()
	dbs := map[string]*database.DB{}
	for _, name := range []string{"history", "cache"} {
		db, err := database.New(database.Config{Path: filepath.Join(dir, name+".db"), Name: name})
		require.NoError(t, err)
		require.NoError(t, db.Migrate())
		t.Cleanup(func() { db.Close() })
		dbs[name] = db
	}

	h := NewSystemHandlers(zerolog.Nop(), dir, dbs, nil, nil)
	w := httptest.NewRecorder()
	h.HandleDatabaseStats(w, httptest.NewRequest(http.MethodGet, "/api/system/database/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp DatabaseStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Databases, 2)
	assert.Equal(t, "cache", resp.Databases[0].Name)
	assert.Equal(t, "history", resp.Databases[1].Name)
	assert.Equal(t, filepath.Join(dir, "history.db"), resp.Databases[1].Path)
	assert.Greater(t, resp.Databases[1].PageCount, int64(0))
	assert.Greater(t, resp.TotalSizeMB, 0.0)
}
