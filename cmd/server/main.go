// Package main is the entry point for the RWA investment agent server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rwagpt/agent/internal/config"
	"github.com/rwagpt/agent/internal/di"
	"github.com/rwagpt/agent/internal/server"
	"github.com/rwagpt/agent/pkg/logger"
)

// getEnv returns the value of an environment variable or a fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// main orchestrates startup:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes logging
// 3. Wires all dependencies via the DI container (databases, clients, services, jobs)
// 4. Optionally restores the ledger from a local backup (RESTORE_BACKUP)
// 5. Starts the job scheduler and the HTTP server
// 6. Waits for a shutdown signal and shuts down gracefully
func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Int("port", cfg.Port).
		Int("default_chain_id", cfg.DefaultChainID).
		Str("data_dir", cfg.DataDir).
		Msg("Starting RWA agent")

	container, _, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// Restore runs after the ledger is loaded and replaces it wholesale
	if name := getEnv("RESTORE_BACKUP", ""); name != "" {
		n, err := container.BackupService.RestoreLocal(name, container.Ledger)
		if err != nil {
			log.Fatal().Err(err).Str("archive", name).Msg("Failed to restore ledger backup")
		}
		log.Warn().Str("archive", name).Int("records", n).Msg("Ledger restored; unset RESTORE_BACKUP before the next start")
	}

	container.Scheduler.Start()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop the scheduler first so no job touches the databases during shutdown
	container.Scheduler.Stop()
	log.Info().Msg("Scheduler stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
