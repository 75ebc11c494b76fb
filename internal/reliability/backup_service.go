package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/rwagpt/agent/internal/modules/ledger"
)

const (
	backupPrefix       = "ledger-backup-"
	backupSuffix       = ".tar.gz"
	backupTimeLayout   = "2006-01-02-150405"
	snapshotEntry      = "ledger.msgpack"
	metadataEntry      = "backup-metadata.json"
	snapshotVersion    = 1
	minBackupsToKeep   = 3
	defaultLocalBackup = 7
)

// ErrChecksumMismatch is returned when a snapshot does not match its recorded checksum
var ErrChecksumMismatch = errors.New("backup checksum mismatch")

// Snapshotter provides a point-in-time copy of the ledger
type Snapshotter interface {
	Snapshot() []ledger.Record
}

// Restorer replaces the ledger contents
type Restorer interface {
	Restore(records []ledger.Record)
}

// LedgerSnapshot is the msgpack payload stored in each archive
type LedgerSnapshot struct {
	Version   int             `msgpack:"version"`
	CreatedAt time.Time       `msgpack:"created_at"`
	Records   []ledger.Record `msgpack:"records"`
}

// BackupMetadata describes the snapshot inside an archive
type BackupMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Version   int       `json:"version"`
	Records   int       `json:"records"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
}

// BackupInfo represents one stored backup archive
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
	Remote    bool      `json:"remote"`
}

// BackupService writes ledger snapshots to the local backup directory
// and, when an object store is configured, uploads them.
type BackupService struct {
	source    Snapshotter
	store     ObjectStore
	dir       string
	keepLocal int
	now       func() time.Time
	log       zerolog.Logger
}

// NewBackupService creates a backup service. store may be nil for local-only backups.
func NewBackupService(source Snapshotter, store ObjectStore, dataDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		source:    source,
		store:     store,
		dir:       filepath.Join(dataDir, "backups"),
		keepLocal: defaultLocalBackup,
		now:       time.Now,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// Dir returns the local backup directory
func (s *BackupService) Dir() string {
	return s.dir
}

// RemoteEnabled reports whether archives are uploaded
func (s *BackupService) RemoteEnabled() bool {
	return s.store != nil
}

// CreateBackup snapshots the ledger into a tar.gz archive and uploads it when remote storage is configured
func (s *BackupService) CreateBackup(ctx context.Context) (BackupInfo, error) {
	startTime := time.Now()
	now := s.now().UTC()

	records := s.source.Snapshot()
	payload, err := msgpack.Marshal(LedgerSnapshot{
		Version:   snapshotVersion,
		CreatedAt: now,
		Records:   records,
	})
	if err != nil {
		return BackupInfo{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	metadata := BackupMetadata{
		Timestamp: now,
		Version:   snapshotVersion,
		Records:   len(records),
		SizeBytes: int64(len(payload)),
		Checksum:  calculateChecksum(payload),
	}
	metaJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return BackupInfo{}, fmt.Errorf("failed to encode metadata: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return BackupInfo{}, fmt.Errorf("failed to create backup directory: %w", err)
	}

	archiveName := backupPrefix + now.Format(backupTimeLayout) + backupSuffix
	archivePath := filepath.Join(s.dir, archiveName)
	if err := createArchive(archivePath, now, map[string][]byte{
		snapshotEntry: payload,
		metadataEntry: metaJSON,
	}); err != nil {
		return BackupInfo{}, fmt.Errorf("failed to create archive: %w", err)
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return BackupInfo{}, fmt.Errorf("failed to stat archive: %w", err)
	}

	info := BackupInfo{
		Filename:  archiveName,
		Timestamp: now,
		SizeBytes: archiveInfo.Size(),
	}

	if s.store != nil {
		archiveFile, err := os.Open(archivePath)
		if err != nil {
			return info, fmt.Errorf("failed to open archive: %w", err)
		}
		defer archiveFile.Close()

		if err := s.store.Upload(ctx, archiveName, archiveFile, archiveInfo.Size()); err != nil {
			return info, fmt.Errorf("failed to upload backup: %w", err)
		}
		info.Remote = true
	}

	if err := s.rotateLocal(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to rotate local backups")
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("archive", archiveName).
		Int("records", len(records)).
		Bool("remote", info.Remote).
		Msg("Ledger backup completed")

	return info, nil
}

// ListBackups lists the stored archives, newest first.
// Remote archives are listed when an object store is configured, local ones otherwise.
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	var objects []ObjectInfo
	remote := s.store != nil

	if remote {
		listed, err := s.store.List(ctx, backupPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list remote backups: %w", err)
		}
		objects = listed
	} else {
		listed, err := s.listLocal()
		if err != nil {
			return nil, err
		}
		objects = listed
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		timestamp, ok := parseBackupName(obj.Key)
		if !ok {
			s.log.Warn().Str("filename", obj.Key).Msg("Failed to parse timestamp from filename")
			continue
		}
		backups = append(backups, BackupInfo{
			Filename:  obj.Key,
			Timestamp: timestamp,
			SizeBytes: obj.SizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
			Remote:    remote,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes remote backups older than the retention period.
// The newest three are always kept; retentionDays of 0 keeps everything.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	if s.store == nil {
		return 0, nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= minBackupsToKeep || retentionDays == 0 {
		return 0, nil
	}

	cutoffTime := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, backup := range backups[minBackupsToKeep:] {
		if !backup.Timestamp.Before(cutoffTime) {
			continue
		}
		if err := s.store.Delete(ctx, backup.Filename); err != nil {
			s.log.Error().Err(err).Str("filename", backup.Filename).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("filename", backup.Filename).Time("timestamp", backup.Timestamp).Msg("Deleted old backup")
		deleted++
	}

	s.log.Info().Int("deleted", deleted).Int("remaining", len(backups)-deleted).Msg("Backup rotation completed")
	return deleted, nil
}

// ReadSnapshot opens a local archive and verifies its checksum
func (s *BackupService) ReadSnapshot(filename string) (*LedgerSnapshot, *BackupMetadata, error) {
	if filepath.Base(filename) != filename {
		return nil, nil, fmt.Errorf("invalid backup name: %s", filename)
	}

	entries, err := readArchive(filepath.Join(s.dir, filename))
	if err != nil {
		return nil, nil, err
	}

	payload, ok := entries[snapshotEntry]
	if !ok {
		return nil, nil, fmt.Errorf("archive %s has no %s", filename, snapshotEntry)
	}

	var metadata BackupMetadata
	if raw, ok := entries[metadataEntry]; ok {
		if err := json.Unmarshal(raw, &metadata); err != nil {
			return nil, nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
		if metadata.Checksum != calculateChecksum(payload) {
			return nil, nil, fmt.Errorf("%w: %s", ErrChecksumMismatch, filename)
		}
	}

	var snapshot LedgerSnapshot
	if err := msgpack.Unmarshal(payload, &snapshot); err != nil {
		return nil, nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, &metadata, nil
}

// RestoreLocal loads a local archive into target
func (s *BackupService) RestoreLocal(filename string, target Restorer) (int, error) {
	snapshot, _, err := s.ReadSnapshot(filename)
	if err != nil {
		return 0, err
	}
	target.Restore(snapshot.Records)

	s.log.Info().Str("archive", filename).Int("records", len(snapshot.Records)).Msg("Ledger restored from backup")
	return len(snapshot.Records), nil
}

func (s *BackupService) listLocal() ([]ObjectInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	out := make([]ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), backupPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, ObjectInfo{Key: entry.Name(), SizeBytes: info.Size()})
	}
	return out, nil
}

// rotateLocal keeps the newest keepLocal archives on disk
func (s *BackupService) rotateLocal() error {
	objects, err := s.listLocal()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(objects))
	for _, obj := range objects {
		if _, ok := parseBackupName(obj.Key); ok {
			names = append(names, obj.Key)
		}
	}
	if len(names) <= s.keepLocal {
		return nil
	}

	// the timestamp layout sorts lexically
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, name := range names[s.keepLocal:] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}

func parseBackupName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, backupPrefix), backupSuffix)
	t, err := time.Parse(backupTimeLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func calculateChecksum(data []byte) string {
	return fmt.Sprintf("sha256:%x", sha256.Sum256(data))
}

// createArchive writes entries to a tar.gz file in sorted name order
func createArchive(archivePath string, modTime time.Time, entries map[string][]byte) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	tarWriter := tar.NewWriter(gzipWriter)

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		data := entries[name]
		header := &tar.Header{
			Name:    name,
			Size:    int64(len(data)),
			Mode:    0644,
			ModTime: modTime,
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
		if _, err := tarWriter.Write(data); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	if err := gzipWriter.Close(); err != nil {
		return err
	}
	return archiveFile.Sync()
}

func readArchive(archivePath string) (map[string][]byte, error) {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	defer gzipReader.Close()

	entries := make(map[string][]byte)
	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive: %w", err)
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tarReader); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", header.Name, err)
		}
		entries[header.Name] = buf.Bytes()
	}
	return entries, nil
}
