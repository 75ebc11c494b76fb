// Package ledger records investment transactions and reconciles the
// payment-intent leg of an investment with its on-chain leg.
package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Persister stores the full ledger. Every mutation writes the whole record set through.
type Persister interface {
	LoadAll(ctx context.Context) ([]Record, error)
	ReplaceAll(ctx context.Context, records []Record) error
}

const persistTimeout = 5 * time.Second

// Ledger is the process-wide transaction store.
// Records are kept in append order; "most recent" always means last appended.
type Ledger struct {
	mu        sync.Mutex
	records   []Record
	persister Persister
	now       func() time.Time
	log       zerolog.Logger
}

// New creates an empty ledger. persister may be nil for a memory-only ledger.
func New(persister Persister, log zerolog.Logger) *Ledger {
	return &Ledger{
		persister: persister,
		now:       time.Now,
		log:       log.With().Str("component", "ledger").Logger(),
	}
}

// Load replaces the in-memory records with the persisted ones
func (l *Ledger) Load(ctx context.Context) error {
	if l.persister == nil {
		return nil
	}

	records, err := l.persister.LoadAll(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.records = records
	l.mu.Unlock()

	l.log.Info().Int("count", len(records)).Msg("Ledger loaded")
	return nil
}

// Append adds a record. ID, timestamp, type and status are filled when empty.
func (l *Ledger) Append(rec Record) Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec = l.normalize(rec)
	l.records = append(l.records, rec)
	l.persistLocked()

	return rec.clone()
}

// AttachHash records the transaction hash of a submitted investment.
// With a payment id it targets the most recent record carrying that id;
// otherwise the most recent pending record that has no hash yet.
// When nothing matches a new record is created from defaults, and false is returned.
func (l *Ledger) AttachHash(txHash string, x402PaymentID *string, defaults AttachDefaults) (bool, Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	byPayment := x402PaymentID != nil && *x402PaymentID != ""

	for i := len(l.records) - 1; i >= 0; i-- {
		rec := &l.records[i]

		var match bool
		if byPayment {
			match = rec.HasPaymentID() && *rec.X402PaymentID == *x402PaymentID
		} else {
			match = rec.Status == StatusPending && !rec.HasHash()
		}
		if !match {
			continue
		}

		rec.TxHash = StringPtr(txHash)
		l.persistLocked()
		l.log.Info().Str("tx_hash", txHash).Str("id", rec.ID).Msg("Attached hash to ledger record")
		return true, rec.clone()
	}

	d := defaults.withFallbacks()
	var paymentID *string
	if byPayment {
		paymentID = StringPtr(*x402PaymentID)
	}
	rec := l.normalize(Record{
		UserAddress:   UnknownUser,
		Amount:        d.Amount,
		AssetID:       d.AssetID,
		X402PaymentID: paymentID,
		Status:        d.Status,
		ChainID:       DefaultChainID,
		TxHash:        StringPtr(txHash),
	})
	l.records = append(l.records, rec)
	l.persistLocked()

	l.log.Info().Str("tx_hash", txHash).Msg("No matching ledger record, created a new one")
	return false, rec.clone()
}

// AttachHashByID sets the hash of the record with the given id
func (l *Ledger) AttachHashByID(id, txHash string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.records {
		if l.records[i].ID == id {
			l.records[i].TxHash = StringPtr(txHash)
			l.persistLocked()
			return l.records[i].clone(), true
		}
	}
	return Record{}, false
}

// SetStatus updates the first record with the given hash.
// Moving to confirmed stamps ConfirmedAt.
func (l *Ledger) SetStatus(txHash string, status Status) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.records {
		rec := &l.records[i]
		if !rec.HasHash() || *rec.TxHash != txHash {
			continue
		}

		rec.Status = status
		if status == StatusConfirmed {
			at := l.now()
			rec.ConfirmedAt = &at
		}
		l.persistLocked()
		return true
	}

	l.log.Warn().Str("tx_hash", txHash).Msg("Transaction not found in ledger")
	return false
}

// Reconcile merges the two legs of each investment and drops duplicates.
// Records sharing a payment id collapse into one: the most recent record without
// a hash supplies the descriptive fields, the most recent hashed record supplies
// hash, status and confirmation time. Records without a payment id are kept as is.
// The stored ledger is replaced by the result; the returned copy is newest first.
func (l *Ledger) Reconcile() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	type group struct {
		hashed   *Record
		unhashed *Record
	}
	groups := make(map[string]*group)
	var order []string
	var standalone []Record

	for i := range l.records {
		rec := l.records[i]
		if !rec.HasPaymentID() {
			standalone = append(standalone, rec)
			continue
		}

		id := *rec.X402PaymentID
		g, ok := groups[id]
		if !ok {
			g = &group{}
			groups[id] = g
			order = append(order, id)
		}
		if rec.HasHash() {
			g.hashed = &rec
		} else {
			g.unhashed = &rec
		}
	}

	merged := make([]Record, 0, len(order)+len(standalone))
	for _, id := range order {
		g := groups[id]
		switch {
		case g.hashed != nil && g.unhashed != nil:
			rec := *g.unhashed
			rec.TxHash = g.hashed.TxHash
			rec.Status = g.hashed.Status
			rec.ConfirmedAt = g.hashed.ConfirmedAt
			merged = append(merged, rec)
		case g.hashed != nil:
			merged = append(merged, *g.hashed)
		default:
			merged = append(merged, *g.unhashed)
		}
	}
	merged = append(merged, standalone...)

	// keep storage in append (oldest first) order
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})

	if removed := len(l.records) - len(merged); removed > 0 {
		l.log.Info().Int("removed", removed).Msg("Reconciled duplicate ledger records")
	}
	l.records = merged
	l.persistLocked()

	return newestFirst(l.records)
}

// ListForUser returns the records of address, case-insensitively, newest first
func (l *Ledger) ListForUser(address string) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Record
	for _, rec := range l.records {
		if strings.EqualFold(rec.UserAddress, address) {
			out = append(out, rec)
		}
	}
	return newestFirst(out)
}

// All returns every record, newest first
func (l *Ledger) All() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return newestFirst(l.records)
}

// Snapshot returns a deep copy of the records in append order
func (l *Ledger) Snapshot() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneAll(l.records)
}

// Restore replaces every record with records and writes the result through
func (l *Ledger) Restore(records []Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	restored := make([]Record, 0, len(records))
	for _, rec := range records {
		restored = append(restored, l.normalize(rec))
	}
	l.records = restored
	l.persistLocked()

	l.log.Info().Int("count", len(restored)).Msg("Ledger restored")
}

// Len returns the number of records
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func (l *Ledger) normalize(rec Record) Record {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now()
	}
	if rec.TransactionType == "" {
		rec.TransactionType = TransactionTypeInvestment
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	if rec.ChainID == 0 {
		rec.ChainID = DefaultChainID
	}
	return rec.clone()
}

// persistLocked writes the ledger through; failures are logged, the in-memory state stays authoritative
func (l *Ledger) persistLocked() {
	if l.persister == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := l.persister.ReplaceAll(ctx, cloneAll(l.records)); err != nil {
		l.log.Error().Err(err).Msg("Failed to persist ledger")
	}
}

func cloneAll(records []Record) []Record {
	out := make([]Record, len(records))
	for i, rec := range records {
		out[i] = rec.clone()
	}
	return out
}

func newestFirst(records []Record) []Record {
	out := cloneAll(records)
	// stable reverse sort: equal timestamps list the later append first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
