package reliability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwagpt/agent/internal/modules/ledger"
)

type staticSnapshotter struct {
	records []ledger.Record
}

func (s *staticSnapshotter) Snapshot() []ledger.Record {
	return s.records
}

type recordingRestorer struct {
	records []ledger.Record
}

func (r *recordingRestorer) Restore(records []ledger.Record) {
	r.records = records
}

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.Reader, _ int64) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, SizeBytes: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func sampleRecords() []ledger.Record {
	ts := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	return []ledger.Record{
		{
			ID:              "a",
			Timestamp:       ts,
			UserAddress:     "0xA",
			Amount:          "100",
			AssetID:         "TCB-001",
			TransactionType: ledger.TransactionTypeInvestment,
			X402PaymentID:   ledger.StringPtr("x402_1"),
			Status:          ledger.StatusPending,
			ChainID:         80002,
		},
		{
			ID:              "b",
			Timestamp:       ts.Add(time.Minute),
			UserAddress:     "0xB",
			Amount:          "5",
			AssetID:         "RE-001",
			TransactionType: ledger.TransactionTypeInvestment,
			Status:          ledger.StatusConfirmed,
			ChainID:         137,
			TxHash:          ledger.StringPtr("0xhash"),
		},
	}
}

func newTestService(t *testing.T, store ObjectStore) *BackupService {
	t.Helper()
	var source Snapshotter = &staticSnapshotter{records: sampleRecords()}
	s := NewBackupService(source, store, t.TempDir(), zerolog.Nop())
	clock := time.Date(2025, 9, 10, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestCreateBackup_LocalRoundTrip(t *testing.T) {
	s := newTestService(t, nil)

	info, err := s.CreateBackup(context.Background())
	require.NoError(t, err)
	assert.False(t, info.Remote)
	assert.True(t, strings.HasPrefix(info.Filename, "ledger-backup-2025-09-10-"))
	assert.FileExists(t, filepath.Join(s.Dir(), info.Filename))

	snapshot, metadata, err := s.ReadSnapshot(info.Filename)
	require.NoError(t, err)
	assert.Equal(t, 2, metadata.Records)
	assert.True(t, strings.HasPrefix(metadata.Checksum, "sha256:"))
	require.Len(t, snapshot.Records, 2)
	assert.Equal(t, "a", snapshot.Records[0].ID)
	assert.Equal(t, "x402_1", *snapshot.Records[0].X402PaymentID)
	assert.Equal(t, "0xhash", *snapshot.Records[1].TxHash)
	assert.True(t, sampleRecords()[1].Timestamp.Equal(snapshot.Records[1].Timestamp))

	restorer := &recordingRestorer{}
	n, err := s.RestoreLocal(info.Filename, restorer)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, restorer.records, 2)
}

func TestCreateBackup_Uploads(t *testing.T) {
	store := newMemoryStore()
	s := newTestService(t, store)

	info, err := s.CreateBackup(context.Background())
	require.NoError(t, err)
	assert.True(t, info.Remote)
	assert.Contains(t, store.objects, info.Filename)

	local, err := os.ReadFile(filepath.Join(s.Dir(), info.Filename))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(local, store.objects[info.Filename]))
}

func TestCreateBackup_UploadFailure(t *testing.T) {
	store := newMemoryStore()
	store.uploadErr = errors.New("bucket gone")
	s := newTestService(t, store)

	_, err := s.CreateBackup(context.Background())
	assert.ErrorContains(t, err, "bucket gone")
}

func TestReadSnapshot_RejectsTamperedArchive(t *testing.T) {
	s := newTestService(t, nil)
	require.NoError(t, os.MkdirAll(s.Dir(), 0755))

	name := "ledger-backup-2025-09-01-000000.tar.gz"
	err := createArchive(filepath.Join(s.Dir(), name), time.Now(), map[string][]byte{
		snapshotEntry: []byte("not the payload"),
		metadataEntry: []byte(`{"checksum":"sha256:00"}`),
	})
	require.NoError(t, err)

	_, _, err = s.ReadSnapshot(name)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestReadSnapshot_RejectsPaths(t *testing.T) {
	s := newTestService(t, nil)
	_, _, err := s.ReadSnapshot("../ledger-backup-2025-09-01-000000.tar.gz")
	assert.Error(t, err)
}

func TestListBackups_NewestFirstAndSkipsForeignNames(t *testing.T) {
	store := newMemoryStore()
	store.objects["ledger-backup-2025-09-01-000000.tar.gz"] = []byte("1")
	store.objects["ledger-backup-2025-09-03-000000.tar.gz"] = []byte("3")
	store.objects["ledger-backup-garbage.tar.gz"] = []byte("x")
	s := newTestService(t, store)

	backups, err := s.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "ledger-backup-2025-09-03-000000.tar.gz", backups[0].Filename)
	assert.True(t, backups[0].Remote)
	assert.Greater(t, backups[1].AgeHours, backups[0].AgeHours)
}

func TestRotateOldBackups_KeepsMinimum(t *testing.T) {
	store := newMemoryStore()
	for _, day := range []string{"01", "02", "03", "04", "05"} {
		store.objects["ledger-backup-2025-08-"+day+"-000000.tar.gz"] = []byte(day)
	}
	store.objects["ledger-backup-2025-09-09-000000.tar.gz"] = []byte("recent")
	s := newTestService(t, store)

	deleted, err := s.RotateOldBackups(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	remaining, err := s.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, remaining, 3)
	assert.Equal(t, "ledger-backup-2025-09-09-000000.tar.gz", remaining[0].Filename)
}

func TestRotateOldBackups_ZeroRetentionKeepsAll(t *testing.T) {
	store := newMemoryStore()
	for _, day := range []string{"01", "02", "03", "04", "05"} {
		store.objects["ledger-backup-2025-08-"+day+"-000000.tar.gz"] = []byte(day)
	}
	s := newTestService(t, store)

	deleted, err := s.RotateOldBackups(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Len(t, store.objects, 5)
}

func TestCreateBackup_RotatesLocalCopies(t *testing.T) {
	s := newTestService(t, nil)
	s.keepLocal = 2

	for i := 0; i < 4; i++ {
		_, err := s.CreateBackup(context.Background())
		require.NoError(t, err)
	}

	backups, err := s.ListBackups(context.Background())
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}
