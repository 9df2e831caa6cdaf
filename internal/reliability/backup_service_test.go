package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aristath/frontier/internal/database"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) Upload(_ context.Context, key string, body io.Reader) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ObjectInfo
	for key, data := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func openTestDatabases(t *testing.T) (map[string]*database.DB, string) {
	t.Helper()
	dir := t.TempDir()
	dbs := map[string]*database.DB{}
	for _, name := range []string{"history", "cache"} {
		db, err := database.New(database.Config{Path: filepath.Join(dir, name+".db"), Name: name})
		require.NoError(t, err)
		require.NoError(t, db.Migrate())
		t.Cleanup(func() { db.Close() })
		dbs[name] = db
	}
	_, err := dbs["history"].Conn().Exec(
		"INSERT INTO daily_prices (symbol, date, close) VALUES ('SPY', 1700000000, 450.5)")
	require.NoError(t, err)
	return dbs, dir
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	files := map[string][]byte{}
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[header.Name] = body
	}
	return files
}

func TestBackupService_CreateAndUploadBackup(t *testing.T) {
	dbs, dir := openTestDatabases(t)
	store := newFakeStore()
	svc := NewBackupService(dbs, store, "frontier/", 3, dir, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }

	info, err := svc.CreateAndUploadBackup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "frontier/frontier-backup-2026-03-14-092653.tar.gz", info.Key)
	assert.Greater(t, info.SizeBytes, int64(0))

	require.Equal(t, []string{info.Key}, store.keys())
	files := readArchive(t, store.objects[info.Key])
	require.Contains(t, files, "history.db")
	require.Contains(t, files, "cache.db")
	require.Contains(t, files, metadataFile)

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(files[metadataFile], &metadata))
	require.Len(t, metadata.Databases, 2)
	assert.Equal(t, "cache", metadata.Databases[0].Name)
	assert.Equal(t, "history", metadata.Databases[1].Name)
	for _, db := range metadata.Databases {
		assert.True(t, strings.HasPrefix(db.Checksum, "sha256:"))
		assert.Equal(t, int64(len(files[db.Filename])), db.SizeBytes)
	}

	// Staging is cleaned up
	entries, err := filepath.Glob(filepath.Join(dir, "backup-staging", "run-*"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBackupService_UploadFailure(t *testing.T) {
	dbs, dir := openTestDatabases(t)
	store := newFakeStore()
	store.uploadErr = errors.New("network down")
	svc := NewBackupService(dbs, store, "", 3, dir, zerolog.Nop())

	_, err := svc.CreateAndUploadBackup(context.Background())
	assert.ErrorContains(t, err, "network down")
	assert.Empty(t, store.keys())
}

func TestBackupService_RotationKeepsNewest(t *testing.T) {
	dbs, dir := openTestDatabases(t)
	store := newFakeStore()
	for _, stamp := range []string{"2026-01-01-000000", "2026-01-02-000000", "2026-01-03-000000"} {
		store.objects["frontier/frontier-backup-"+stamp+".tar.gz"] = []byte("old")
	}
	store.objects["frontier/unrelated.txt"] = []byte("keep")
	store.objects["frontier/frontier-backup-garbage.tar.gz"] = []byte("keep")

	svc := NewBackupService(dbs, store, "frontier/", 2, dir, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }

	_, err := svc.CreateAndUploadBackup(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"frontier/frontier-backup-2026-01-03-000000.tar.gz",
		"frontier/frontier-backup-2026-02-01-000000.tar.gz",
		"frontier/frontier-backup-garbage.tar.gz",
		"frontier/unrelated.txt",
	}, store.keys())

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "frontier/frontier-backup-2026-02-01-000000.tar.gz", backups[0].Key)
	assert.Equal(t, int64(29*24), backups[1].AgeHours)
}

func TestBackupService_RotationFailureIsNotFatal(t *testing.T) {
	dbs, dir := openTestDatabases(t)
	store := newFakeStore()
	store.objects["frontier-backup-2020-01-01-000000.tar.gz"] = []byte("old")
	store.deleteErr = errors.New("permission denied")
	svc := NewBackupService(dbs, store, "", 1, dir, zerolog.Nop())

	_, err := svc.CreateAndUploadBackup(context.Background())
	require.NoError(t, err)

	deleted, err := svc.RotateOldBackups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
	assert.Len(t, store.keys(), 2)
}

func TestBackupJob(t *testing.T) {
	dbs, dir := openTestDatabases(t)
	store := newFakeStore()
	job := NewBackupJob(NewBackupService(dbs, store, "", 3, dir, zerolog.Nop()))

	assert.Equal(t, "backup", job.Name())
	require.NoError(t, job.Run())
	assert.Len(t, store.keys(), 1)
}
