// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/clientdata"
	"github.com/rwagpt/agent/internal/config"
	"github.com/rwagpt/agent/internal/reliability"
	"github.com/rwagpt/agent/internal/scheduler"
)

const (
	defaultReconcileSchedule  = "@every 5m"
	defaultBackupSchedule     = "@daily"
	clientDataCleanupSchedule = "0 0 3 * * *"
	checkDatabasesSchedule    = "0 30 3 * * *"
	walCheckpointSchedule     = "0 0 * * * *"
)

// RegisterJobs creates the scheduler and registers every background job.
// The scheduler is stored in the container but not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	retentionDays := 0
	if cfg.Backup != nil {
		retentionDays = cfg.Backup.RetentionDays
	}

	sched := scheduler.New(log)
	instances := &JobInstances{
		ReconcileLedger:     scheduler.NewReconcileLedgerJob(container.Ledger, log),
		ClientDataCleanup:   clientdata.NewCleanupJob(container.ClientDataRepo, log),
		CheckDatabases:      scheduler.NewCheckDatabasesJob(log, container.Databases()...),
		CheckWALCheckpoints: scheduler.NewCheckWALCheckpointsJob(log, container.Databases()...),
		BackupLedger:        reliability.NewBackupJob(container.BackupService, retentionDays, log),
	}

	registrations := []struct {
		schedule string
		job      scheduler.Job
	}{
		{orDefault(cfg.ReconcileSchedule, defaultReconcileSchedule), instances.ReconcileLedger},
		{clientDataCleanupSchedule, instances.ClientDataCleanup},
		{checkDatabasesSchedule, instances.CheckDatabases},
		{walCheckpointSchedule, instances.CheckWALCheckpoints},
		{orDefault(cfg.BackupSchedule, defaultBackupSchedule), instances.BackupLedger},
	}
	for _, reg := range registrations {
		if err := sched.AddJob(reg.schedule, reg.job); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", reg.job.Name(), err)
		}
	}

	container.Scheduler = sched
	log.Info().Int("jobs", len(registrations)).Msg("Jobs registered")

	return instances, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
