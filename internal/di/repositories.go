// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/clientdata"
	"github.com/rwagpt/agent/internal/modules/ledger"
	"github.com/rwagpt/agent/internal/modules/messages"
)

// InitializeRepositories creates all repositories and stores them in the container
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.LedgerRepo = ledger.NewRepository(container.LedgerDB.Conn(), log)
	container.MessageRepo = messages.NewRepository(container.MessagesDB.Conn(), log)
	container.ClientDataRepo = clientdata.NewRepository(container.ClientDataDB.Conn(), log)

	log.Info().Msg("Repositories initialized")
	return nil
}
