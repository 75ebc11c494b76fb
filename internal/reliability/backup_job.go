package reliability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

const (
	backupJobTimeout = 2 * time.Minute
	// below this much free space the snapshot is skipped
	criticalFreeGB = 0.1
	lowFreeGB      = 1.0
)

// BackupJob snapshots the ledger, verifies the archive and rotates remote copies
type BackupJob struct {
	service       *BackupService
	retentionDays int
	diskFree      func(path string) (uint64, error)
	log           zerolog.Logger
}

// NewBackupJob creates the scheduled backup job
func NewBackupJob(service *BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		diskFree:      freeBytes,
		log:           log.With().Str("job", "backup_ledger").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "backup_ledger"
}

// Run executes the backup
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupJobTimeout)
	defer cancel()

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	info, err := j.service.CreateBackup(ctx)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	if _, _, err := j.service.ReadSnapshot(info.Filename); err != nil {
		j.log.Error().Err(err).Str("archive", info.Filename).Msg("Backup verification failed")
		return fmt.Errorf("backup verification failed: %w", err)
	}

	if _, err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		// the new snapshot exists; rotation retries next run
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}

func (j *BackupJob) checkDiskSpace() error {
	free, err := j.diskFree(j.service.Dir())
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to check disk space")
		return nil
	}

	availableGB := float64(free) / 1e9
	j.log.Debug().Float64("available_gb", availableGB).Msg("Disk space check")

	if availableGB < criticalFreeGB {
		j.log.Error().Float64("available_gb", availableGB).Msg("Insufficient disk space, skipping backup")
		return fmt.Errorf("only %.2f GB free", availableGB)
	}
	if availableGB < lowFreeGB {
		j.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	}
	return nil
}

// freeBytes reports free space on the filesystem holding path or its nearest existing parent
func freeBytes(path string) (uint64, error) {
	usage, err := disk.Usage(existingParent(path))
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

func existingParent(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
