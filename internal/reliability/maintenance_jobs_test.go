package reliability

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyMaintenanceJob(t *testing.T) {
	dbs, dir := openTestDatabases(t)

	tests := []struct {
		name    string
		usage   *disk.UsageStat
		err     error
		wantErr bool
	}{
		{"plenty of space", &disk.UsageStat{Free: 50e9, UsedPercent: 40}, nil, false},
		{"low space only warns", &disk.UsageStat{Free: 2e9, UsedPercent: 95}, nil, false},
		{"critical space", &disk.UsageStat{Free: 100e6, UsedPercent: 99.9}, nil, true},
		{"usage error", nil, errors.New("no such device"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewDailyMaintenanceJob(dbs, dir, zerolog.Nop())
			var gotPath string
			job.diskUsage = func(path string) (*disk.UsageStat, error) {
				gotPath = path
				return tt.usage, tt.err
			}

			err := job.Run()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, dir, gotPath)
		})
	}
}

func TestWeeklyMaintenanceJob(t *testing.T) {
	dbs, _ := openTestDatabases(t)
	job := NewWeeklyMaintenanceJob(dbs, zerolog.Nop())

	assert.Equal(t, "weekly_maintenance", job.Name())
	require.NoError(t, job.Run())

	var count int
	require.NoError(t, dbs["history"].Conn().QueryRow("SELECT COUNT(*) FROM daily_prices").Scan(&count))
	assert.Equal(t, 1, count)
}
