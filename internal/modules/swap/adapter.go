// Package swap assembles token-swap transactions through external aggregators.
package swap

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/domain"
)

// Source tags which aggregator produced an executable transaction
type Source string

// Sources
const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// DefaultTimeout bounds each aggregator call
const DefaultTimeout = 15 * time.Second

// TxPayload is an unsigned EVM transaction. Quantities are hex encoded.
type TxPayload struct {
	From         string         `json:"from,omitempty"`
	To           string         `json:"to"`
	Data         string         `json:"data"`
	Value        string         `json:"value"`
	Gas          string         `json:"gas,omitempty"`
	GasPrice     string         `json:"gasPrice,omitempty"`
	X402Metadata map[string]any `json:"x402_metadata,omitempty"`
}

// NoOpTransaction is the zero-value, zero-data transaction to the sender
// shown when no aggregator produced a route
func NoOpTransaction(from string) TxPayload {
	return TxPayload{
		To:    from,
		Data:  "0x",
		Value: "0x0",
		Gas:   "0x5208",
	}
}

// QuoteRequest describes the swap to quote
type QuoteRequest struct {
	ChainID     int
	SrcToken    string
	DstToken    string
	AmountHuman string
	SrcDecimals int32
	FromAddress string
}

// Params is what an aggregator receives; Amount is in minor units
type Params struct {
	ChainID     int
	SrcToken    string
	DstToken    string
	Amount      string
	AmountHuman string
	FromAddress string
}

// Aggregator is a swap routing service
type Aggregator interface {
	Name() string
	Supports(chainID int) bool
	Swap(ctx context.Context, p Params) (TxPayload, error)
}

// Result is either executable (Tx set) or not (Details set)
type Result struct {
	Tx         *TxPayload     `json:"tx,omitempty"`
	Source     Source         `json:"source,omitempty"`
	Aggregator string         `json:"aggregator,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// Executable reports whether the result carries a transaction
func (r Result) Executable() bool {
	return r.Tx != nil
}

// Adapter tries the primary aggregator, then the secondary one
type Adapter struct {
	primary   Aggregator
	secondary Aggregator
	timeout   time.Duration
	log       zerolog.Logger
}

// NewAdapter creates a swap adapter. Either aggregator may be nil.
func NewAdapter(primary, secondary Aggregator, log zerolog.Logger) *Adapter {
	return &Adapter{
		primary:   primary,
		secondary: secondary,
		timeout:   DefaultTimeout,
		log:       log.With().Str("component", "swap_adapter").Logger(),
	}
}

// Quote returns a transaction from the first aggregator that produces one.
// It never fails: every failure is folded into a non-executable result.
func (a *Adapter) Quote(ctx context.Context, req QuoteRequest) Result {
	details := map[string]any{
		"chain_id":  req.ChainID,
		"src_token": req.SrcToken,
		"dst_token": req.DstToken,
		"amount":    req.AmountHuman,
	}

	minor, err := ToMinorUnits(req.AmountHuman, req.SrcDecimals)
	if err != nil {
		details["error"] = err.Error()
		return Result{Details: details}
	}
	details["amount_minor"] = minor

	params := Params{
		ChainID:     req.ChainID,
		SrcToken:    req.SrcToken,
		DstToken:    req.DstToken,
		Amount:      minor,
		AmountHuman: req.AmountHuman,
		FromAddress: req.FromAddress,
	}

	if tx, ok := a.try(ctx, a.primary, params, "primary", details); ok {
		return Result{Tx: &tx, Source: SourcePrimary, Aggregator: a.primary.Name()}
	}
	if tx, ok := a.try(ctx, a.secondary, params, "fallback", details); ok {
		return Result{Tx: &tx, Source: SourceFallback, Aggregator: a.secondary.Name()}
	}

	a.log.Info().
		Int("chain_id", req.ChainID).
		Str("amount", req.AmountHuman).
		Msg("No executable swap route")
	return Result{Details: details}
}

func (a *Adapter) try(ctx context.Context, agg Aggregator, p Params, tier string, details map[string]any) (TxPayload, bool) {
	if agg == nil {
		details[tier] = "not configured"
		return TxPayload{}, false
	}
	if !agg.Supports(p.ChainID) {
		details[tier] = agg.Name() + ": unsupported chain"
		return TxPayload{}, false
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	tx, err := agg.Swap(callCtx, p)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			details[tier] = agg.Name() + ": not configured"
		} else {
			details[tier] = agg.Name() + ": " + err.Error()
			a.log.Warn().Err(err).Str("aggregator", agg.Name()).Msg("Swap aggregator failed")
		}
		return TxPayload{}, false
	}
	if tx.To == "" {
		details[tier] = agg.Name() + ": no transaction in response"
		return TxPayload{}, false
	}
	return tx, true
}
