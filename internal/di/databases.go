// Package di provides dependency injection for database connections.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/config"
	"github.com/rwagpt/agent/internal/database"
)

// InitializeDatabases opens the three databases and applies schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. ledger.db - investment transactions
	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger database: %w", err)
	}
	container.LedgerDB = ledgerDB

	// 2. messages.db - local chat transcript
	messagesDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "messages.db"),
		Profile: database.ProfileStandard,
		Name:    "messages",
	})
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize messages database: %w", err)
	}
	container.MessagesDB = messagesDB

	// 3. client_data.db - external API cache (RealT, subgraph, search)
	clientDataDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "client_data.db"),
		Profile: database.ProfileCache,
		Name:    "client_data",
	})
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize client_data database: %w", err)
	}
	container.ClientDataDB = clientDataDB

	for _, db := range container.Databases() {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().Msg("All databases initialized and schemas applied")

	return container, nil
}
