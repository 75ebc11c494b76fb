// Package di provides dependency injection for clients and services.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/clients/oneinch"
	"github.com/rwagpt/agent/internal/clients/openocean"
	"github.com/rwagpt/agent/internal/clients/realt"
	"github.com/rwagpt/agent/internal/clients/search"
	"github.com/rwagpt/agent/internal/clients/subgraph"
	"github.com/rwagpt/agent/internal/clients/supabase"
	"github.com/rwagpt/agent/internal/config"
	"github.com/rwagpt/agent/internal/domain"
	"github.com/rwagpt/agent/internal/modules/agent"
	"github.com/rwagpt/agent/internal/modules/catalog"
	"github.com/rwagpt/agent/internal/modules/intent"
	"github.com/rwagpt/agent/internal/modules/ledger"
	"github.com/rwagpt/agent/internal/modules/payments"
	"github.com/rwagpt/agent/internal/modules/realestate"
	"github.com/rwagpt/agent/internal/modules/recommendation"
	"github.com/rwagpt/agent/internal/modules/swap"
	"github.com/rwagpt/agent/internal/reliability"
)

const ledgerLoadTimeout = 10 * time.Second

// InitializeServices creates the external clients and the services built on them
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// Clients
	container.OneInchClient = oneinch.NewClient(cfg.OneInchAPIKey, log)
	container.OpenOceanClient = openocean.NewClient(log)
	container.RealTClient = realt.NewClient(cfg.RealTAPIURL, container.ClientDataRepo, log)
	container.SubgraphClient = subgraph.NewClient(cfg.SubgraphURL, cfg.SubgraphAPIKey, container.ClientDataRepo, log)

	searchClient, err := search.NewClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, container.ClientDataRepo, log)
	if err != nil {
		return fmt.Errorf("failed to create search client: %w", err)
	}
	container.SearchClient = searchClient

	container.MessageStore = selectMessageStore(container, cfg, log)

	if cfg.Backup.Enabled() {
		r2Client, err := reliability.NewR2Client(context.Background(), cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to create backup bucket client: %w", err)
		}
		container.R2Client = r2Client
	}

	// Catalog
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	container.Catalog = cat

	// Ledger (write-through to ledger.db)
	container.Ledger = ledger.New(container.LedgerRepo, log)
	ctx, cancel := context.WithTimeout(context.Background(), ledgerLoadTimeout)
	defer cancel()
	if err := container.Ledger.Load(ctx); err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}

	container.SwapAdapter = swap.NewAdapter(container.OneInchClient, container.OpenOceanClient, log)
	container.PaymentProcessor = payments.NewProcessor(log)
	container.RealEstateService = realestate.NewService(container.RealTClient, log)

	container.AgentService = agent.NewService(agent.Deps{
		Router:         intent.NewRouter(),
		Catalog:        container.Catalog,
		Scorer:         recommendation.NewScorer(),
		Ledger:         container.Ledger,
		Swapper:        container.SwapAdapter,
		Payments:       container.PaymentProcessor,
		Listings:       container.RealEstateService,
		Searcher:       container.SearchClient,
		Indexer:        container.SubgraphClient,
		Messages:       container.MessageStore,
		DefaultChainID: cfg.DefaultChainID,
	}, log)

	// Backups (local always, remote when a bucket is configured)
	var store reliability.ObjectStore
	if container.R2Client != nil {
		store = container.R2Client
	}
	container.BackupService = reliability.NewBackupService(container.Ledger, store, cfg.DataDir, log)

	log.Info().
		Bool("search", container.SearchClient.Configured()).
		Bool("subgraph", container.SubgraphClient.Configured()).
		Bool("supabase", container.SupabaseClient != nil).
		Bool("remote_backup", container.R2Client != nil).
		Int("catalog_options", container.Catalog.Len()).
		Msg("Services initialized")

	return nil
}

// selectMessageStore prefers Supabase and falls back to the local transcript
func selectMessageStore(container *Container, cfg *config.Config, log zerolog.Logger) domain.MessageStore {
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		container.SupabaseClient = supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, log)
		return container.SupabaseClient
	}
	return container.MessageRepo
}
