package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/rwagpt/agent/internal/database"
	"github.com/rwagpt/agent/internal/reliability"
	"github.com/rwagpt/agent/internal/scheduler"
)

// LedgerCounter reports the ledger size
type LedgerCounter interface {
	Len() int
}

// JobRunner lists and triggers background jobs
type JobRunner interface {
	Jobs() []scheduler.JobStatus
	RunNow(name string) error
}

// BackupManager creates and lists ledger backups
type BackupManager interface {
	CreateBackup(ctx context.Context) (reliability.BackupInfo, error)
	ListBackups(ctx context.Context) ([]reliability.BackupInfo, error)
}

// SystemDeps are the collaborators of the system handlers
type SystemDeps struct {
	DataDir   string
	Ledger    LedgerCounter
	Jobs      JobRunner
	Backups   BackupManager
	Databases []*database.DB
}

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	SystemDeps
	startedAt   time.Time
	systemStats func() (float64, float64)
	log         zerolog.Logger
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(deps SystemDeps, log zerolog.Logger) *SystemHandlers {
	h := &SystemHandlers{
		SystemDeps: deps,
		startedAt:  time.Now(),
		log:        log.With().Str("handler", "system").Logger(),
	}
	h.systemStats = h.getSystemStats
	return h
}

// RegisterRoutes registers the /api routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/system/status", h.HandleSystemStatus)
	r.Get("/system/databases", h.HandleDatabaseStats)
	r.Get("/system/disk", h.HandleDiskUsage)
	r.Get("/jobs", h.HandleJobsStatus)
	r.Post("/jobs/{name}", h.HandleTriggerJob)
	r.Get("/backups", h.HandleListBackups)
	r.Post("/backups", h.HandleCreateBackup)
}

// SystemStatusResponse represents system status
type SystemStatusResponse struct {
	Status        string                `json:"status"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	LedgerRecords int                   `json:"ledger_records"`
	CPUPercent    float64               `json:"cpu_percent"`
	RAMPercent    float64               `json:"ram_percent"`
	Jobs          []scheduler.JobStatus `json:"jobs"`
}

// DatabaseStatsResponse represents database statistics
type DatabaseStatsResponse struct {
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
	LastChecked string   `json:"last_checked"`
}

// DBInfo represents information about a single database
type DBInfo struct {
	Name      string  `json:"name"`
	Path      string  `json:"path"`
	SizeMB    float64 `json:"size_mb"`
	WALSizeMB float64 `json:"wal_size_mb"`
}

// DiskUsageResponse represents disk usage statistics
type DiskUsageResponse struct {
	DataDirMB   float64 `json:"data_dir_mb"`
	BackupsMB   float64 `json:"backups_mb"`
	AvailableMB float64 `json:"available_mb,omitempty"`
}

// HandleSystemStatus returns process and job status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.systemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		Jobs:          []scheduler.JobStatus{},
	}
	if h.Ledger != nil {
		response.LedgerRecords = h.Ledger.Len()
	}
	if h.Jobs != nil {
		response.Jobs = h.Jobs.Jobs()
		for _, job := range response.Jobs {
			if job.LastError != "" {
				response.Status = "degraded"
				break
			}
		}
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDatabaseStats returns per-database file sizes
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	response := DatabaseStatsResponse{
		Databases:   make([]DBInfo, 0, len(h.Databases)),
		LastChecked: time.Now().UTC().Format(time.RFC3339),
	}

	for _, db := range h.Databases {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			continue
		}
		info := DBInfo{
			Name:      db.Name(),
			Path:      db.Path(),
			SizeMB:    float64(stats.SizeBytes) / 1024 / 1024,
			WALSizeMB: float64(stats.WALSizeBytes) / 1024 / 1024,
		}
		response.Databases = append(response.Databases, info)
		response.TotalSizeMB += info.SizeMB + info.WALSizeMB
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDiskUsage returns disk usage statistics
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	response := DiskUsageResponse{
		DataDirMB: h.getDirSize(h.DataDir),
		BackupsMB: h.getDirSize(filepath.Join(h.DataDir, "backups")),
	}
	if usage, err := disk.Usage(h.DataDir); err == nil {
		response.AvailableMB = float64(usage.Free) / 1024 / 1024
	} else {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleJobsStatus returns the status of every registered job
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobStatus{}
	if h.Jobs != nil {
		jobs = h.Jobs.Jobs()
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs, "count": len(jobs)})
}

// HandleTriggerJob runs a job immediately
// POST /api/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.Jobs == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": "scheduler not running"})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job run triggered")
	if err := h.Jobs.RunNow(name); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scheduler.ErrUnknownJob) {
			status = http.StatusNotFound
		}
		h.writeJSON(w, status, map[string]string{"status": "error", "message": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": name + " completed"})
}

// HandleListBackups lists stored ledger backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.Backups == nil {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"backups": []reliability.BackupInfo{}, "count": 0})
		return
	}

	backups, err := h.Backups.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"backups": backups, "count": len(backups)})
}

// HandleCreateBackup snapshots the ledger now
func (h *SystemHandlers) HandleCreateBackup(w http.ResponseWriter, r *http.Request) {
	if h.Backups == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "message": "backups not configured"})
		return
	}

	info, err := h.Backups.CreateBackup(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusCreated, info)
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats samples CPU over 100ms and reads memory instantly
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
