package backup

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divtrack/internal/events"
)

type fakeStore struct {
	objects map[string][]byte
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Upload(ctx context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var infos []ObjectInfo
	for key, data := range f.objects {
		infos = append(infos, ObjectInfo{Key: key, Size: int64(len(data))})
	}
	return infos, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func writeTestDB(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	entries := make(map[string][]byte)
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[header.Name] = content
	}
	return entries
}

func TestCreateAndUpload_ArchivesDatabasesWithManifest(t *testing.T) {
	dir := t.TempDir()
	writeTestDB(t, dir, "stocks.db", "stocks payload")
	writeTestDB(t, dir, "history.db", "history payload")
	// Non-database files stay out of the archive.
	writeTestDB(t, dir, "notes.txt", "not a database")

	store := newFakeStore()
	bus := events.NewBus(zerolog.Nop())
	var published *events.Event
	bus.Subscribe(events.BackupCompleted, func(e *events.Event) { published = e })

	svc := NewService(store, dir, bus, zerolog.Nop())
	key, err := svc.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.Contains(t, key, "divtrack-backup-")
	assert.Contains(t, key, ".tar.gz")

	require.Contains(t, store.objects, key)
	entries := readArchive(t, store.objects[key])
	assert.Contains(t, entries, "stocks.db")
	assert.Contains(t, entries, "history.db")
	assert.NotContains(t, entries, "notes.txt")
	assert.Equal(t, "stocks payload", string(entries["stocks.db"]))

	var metadata Metadata
	require.NoError(t, json.Unmarshal(entries["backup-metadata.json"], &metadata))
	require.Len(t, metadata.Databases, 2)
	assert.Equal(t, "history.db", metadata.Databases[0].Filename)
	assert.Equal(t, int64(len("history payload")), metadata.Databases[0].SizeBytes)
	assert.Contains(t, metadata.Databases[0].Checksum, "sha256:")

	require.NotNil(t, published)
	assert.Equal(t, 2, published.Data["databases"])

	// The staging archive must not linger in the data directory.
	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tar.gz"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestCreateAndUpload_NoDatabasesIsAnError(t *testing.T) {
	svc := NewService(newFakeStore(), t.TempDir(), nil, zerolog.Nop())
	_, err := svc.CreateAndUpload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database files")
}

func TestListBackups_SortsNewestFirst(t *testing.T) {
	store := newFakeStore()
	store.objects["divtrack-backup-2026-08-01-020000.tar.gz"] = []byte("old")
	store.objects["divtrack-backup-2026-08-20-020000.tar.gz"] = []byte("new")
	store.objects["unrelated.txt"] = []byte("ignore")
	store.objects["divtrack-backup-garbage.tar.gz"] = []byte("bad stamp")

	svc := NewService(store, t.TempDir(), nil, zerolog.Nop())
	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)

	require.Len(t, backups, 2)
	assert.Equal(t, "divtrack-backup-2026-08-20-020000.tar.gz", backups[0].Filename)
	assert.Equal(t, "divtrack-backup-2026-08-01-020000.tar.gz", backups[1].Filename)
}

func TestRotateOldBackups_KeepsNewestThree(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	stamps := []string{
		"2026-08-28-020000",
		"2026-08-27-020000",
		"2026-08-26-020000",
		"2026-06-01-020000",
		"2026-05-01-020000",
	}
	for _, stamp := range stamps {
		store.objects["divtrack-backup-"+stamp+".tar.gz"] = []byte("x")
	}

	svc := NewService(store, t.TempDir(), nil, zerolog.Nop())
	svc.now = func() time.Time { return now }

	deleted, err := svc.RotateOldBackups(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Len(t, store.objects, 3)
	assert.NotContains(t, store.objects, "divtrack-backup-2026-06-01-020000.tar.gz")
	assert.NotContains(t, store.objects, "divtrack-backup-2026-05-01-020000.tar.gz")
}

func TestRotateOldBackups_RetentionZeroKeepsAll(t *testing.T) {
	store := newFakeStore()
	for _, stamp := range []string{"2024-01-01-000000", "2024-02-01-000000", "2024-03-01-000000", "2024-04-01-000000"} {
		store.objects["divtrack-backup-"+stamp+".tar.gz"] = []byte("x")
	}

	svc := NewService(store, t.TempDir(), nil, zerolog.Nop())
	deleted, err := svc.RotateOldBackups(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Len(t, store.objects, 4)
}
