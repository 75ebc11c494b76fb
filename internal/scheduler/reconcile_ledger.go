package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/modules/ledger"
)

// ReconcileLedgerJob merges the payment and on-chain legs of investments
type ReconcileLedgerJob struct {
	ledger *ledger.Ledger
	log    zerolog.Logger
}

// NewReconcileLedgerJob creates a new ReconcileLedgerJob
func NewReconcileLedgerJob(l *ledger.Ledger, log zerolog.Logger) *ReconcileLedgerJob {
	return &ReconcileLedgerJob{
		ledger: l,
		log:    log.With().Str("job", "reconcile_ledger").Logger(),
	}
}

// Name returns the job name
func (j *ReconcileLedgerJob) Name() string {
	return "reconcile_ledger"
}

// Run executes the reconciliation
func (j *ReconcileLedgerJob) Run() error {
	before := j.ledger.Len()
	after := len(j.ledger.Reconcile())

	if before != after {
		j.log.Info().
			Int("before", before).
			Int("after", after).
			Msg("Ledger reconciled")
	}
	return nil
}
