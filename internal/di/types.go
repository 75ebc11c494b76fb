// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/rwagpt/agent/internal/clientdata"
	"github.com/rwagpt/agent/internal/clients/oneinch"
	"github.com/rwagpt/agent/internal/clients/openocean"
	"github.com/rwagpt/agent/internal/clients/realt"
	"github.com/rwagpt/agent/internal/clients/search"
	"github.com/rwagpt/agent/internal/clients/subgraph"
	"github.com/rwagpt/agent/internal/clients/supabase"
	"github.com/rwagpt/agent/internal/database"
	"github.com/rwagpt/agent/internal/domain"
	"github.com/rwagpt/agent/internal/modules/agent"
	"github.com/rwagpt/agent/internal/modules/catalog"
	"github.com/rwagpt/agent/internal/modules/ledger"
	"github.com/rwagpt/agent/internal/modules/messages"
	"github.com/rwagpt/agent/internal/modules/payments"
	"github.com/rwagpt/agent/internal/modules/realestate"
	"github.com/rwagpt/agent/internal/modules/swap"
	"github.com/rwagpt/agent/internal/reliability"
	"github.com/rwagpt/agent/internal/scheduler"
)

// Container holds all application dependencies.
// It is created by Wire() and passed to the server for route wiring.
type Container struct {
	// Databases
	LedgerDB     *database.DB // Transaction ledger (maximum durability)
	MessagesDB   *database.DB // Local chat transcript
	ClientDataDB *database.DB // External API response cache

	// Repositories
	LedgerRepo     *ledger.Repository
	MessageRepo    *messages.Repository
	ClientDataRepo *clientdata.Repository

	// Clients
	OneInchClient   *oneinch.Client
	OpenOceanClient *openocean.Client
	RealTClient     *realt.Client
	SubgraphClient  *subgraph.Client
	SearchClient    *search.Client
	SupabaseClient  *supabase.Client     // nil unless SUPABASE_URL is set
	R2Client        *reliability.R2Client // nil unless a backup bucket is set

	// Services
	Catalog           *catalog.Catalog
	Ledger            *ledger.Ledger
	MessageStore      domain.MessageStore // Supabase when configured, local otherwise
	SwapAdapter       *swap.Adapter
	PaymentProcessor  *payments.Processor
	RealEstateService *realestate.Service
	AgentService      *agent.Service
	BackupService     *reliability.BackupService

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// Databases returns every open database
func (c *Container) Databases() []*database.DB {
	var out []*database.DB
	for _, db := range []*database.DB{c.LedgerDB, c.MessagesDB, c.ClientDataDB} {
		if db != nil {
			out = append(out, db)
		}
	}
	return out
}

// Close closes every open database
func (c *Container) Close() {
	for _, db := range c.Databases() {
		db.Close()
	}
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	ReconcileLedger     scheduler.Job
	ClientDataCleanup   scheduler.Job
	CheckDatabases      scheduler.Job
	CheckWALCheckpoints scheduler.Job
	BackupLedger        scheduler.Job
}
