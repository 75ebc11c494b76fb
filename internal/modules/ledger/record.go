package ledger

import "time"

// Status of a ledger record
type Status string

// Record statuses
const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// TransactionTypeInvestment is the only transaction type the agent records
const TransactionTypeInvestment = "investment"

// Defaults for records created from a bare transaction hash
const (
	UnknownUser    = "unknown"
	UnknownAmount  = "unknown"
	DefaultAssetID = "RE-001"
	DefaultChainID = 80002
)

// Record is one ledger entry.
// X402PaymentID links the off-chain payment intent with the on-chain transaction
// of the same investment; TxHash is set once the transaction is submitted.
type Record struct {
	ID              string     `json:"id" msgpack:"id"`
	Timestamp       time.Time  `json:"timestamp" msgpack:"timestamp"`
	UserAddress     string     `json:"user_address" msgpack:"user_address"`
	Amount          string     `json:"amount" msgpack:"amount"`
	AssetID         string     `json:"asset_id" msgpack:"asset_id"`
	TransactionType string     `json:"transaction_type" msgpack:"transaction_type"`
	X402PaymentID   *string    `json:"x402_payment_id" msgpack:"x402_payment_id"`
	Status          Status     `json:"status" msgpack:"status"`
	ChainID         int        `json:"chain_id" msgpack:"chain_id"`
	TxHash          *string    `json:"tx_hash" msgpack:"tx_hash"`
	ConfirmedAt     *time.Time `json:"confirmed_at" msgpack:"confirmed_at"`
}

// HasHash reports whether the on-chain transaction is known
func (r Record) HasHash() bool {
	return r.TxHash != nil && *r.TxHash != ""
}

// HasPaymentID reports whether the record is linked to an x402 payment intent
func (r Record) HasPaymentID() bool {
	return r.X402PaymentID != nil && *r.X402PaymentID != ""
}

func (r Record) clone() Record {
	out := r
	if r.X402PaymentID != nil {
		id := *r.X402PaymentID
		out.X402PaymentID = &id
	}
	if r.TxHash != nil {
		h := *r.TxHash
		out.TxHash = &h
	}
	if r.ConfirmedAt != nil {
		c := *r.ConfirmedAt
		out.ConfirmedAt = &c
	}
	return out
}

// AttachDefaults fills a record created when a hash matches nothing
type AttachDefaults struct {
	Amount  string
	AssetID string
	Status  Status
}

func (d AttachDefaults) withFallbacks() AttachDefaults {
	if d.Amount == "" {
		d.Amount = UnknownAmount
	}
	if d.AssetID == "" {
		d.AssetID = DefaultAssetID
	}
	if d.Status == "" {
		d.Status = StatusPending
	}
	return d
}

// StringPtr returns a pointer to s, or nil for the empty string
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
