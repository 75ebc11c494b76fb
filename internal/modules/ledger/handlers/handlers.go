// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/modules/ledger"
)

// Handler handles ledger HTTP requests
type Handler struct {
	ledger *ledger.Ledger
	log    zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(l *ledger.Ledger, log zerolog.Logger) *Handler {
	return &Handler{
		ledger: l,
		log:    log.With().Str("handler", "ledger").Logger(),
	}
}

// StoreTransactionRequest is the body of POST /store-transaction
type StoreTransactionRequest struct {
	TxHash        string `json:"tx_hash"`
	Amount        string `json:"amount"`
	AssetID       string `json:"asset_id"`
	Status        string `json:"status"`
	X402PaymentID string `json:"x402_payment_id"`
	RecordID      string `json:"record_id"`
}

// UpdateTransactionRequest is the body of POST /update-transaction
type UpdateTransactionRequest struct {
	TxHash string `json:"tx_hash"`
	Status string `json:"status"`
}

// HandleStoreTransaction handles POST /store-transaction.
// It attaches the hash to the matching record, or creates one.
func (h *Handler) HandleStoreTransaction(w http.ResponseWriter, r *http.Request) {
	var req StoreTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TxHash == "" {
		h.writeError(w, http.StatusBadRequest, "tx_hash is required")
		return
	}

	status := ledger.StatusPending
	if req.Status != "" {
		s, ok := parseStatus(req.Status)
		if !ok {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", req.Status))
			return
		}
		status = s
	}

	var (
		updated bool
		rec     ledger.Record
	)
	if req.RecordID != "" {
		rec, updated = h.ledger.AttachHashByID(req.RecordID, req.TxHash)
	}
	if !updated {
		updated, rec = h.ledger.AttachHash(req.TxHash, ledger.StringPtr(req.X402PaymentID), ledger.AttachDefaults{
			Amount:  req.Amount,
			AssetID: req.AssetID,
			Status:  status,
		})
	}

	h.log.Info().
		Str("tx_hash", req.TxHash).
		Str("x402_payment_id", req.X402PaymentID).
		Bool("updated", updated).
		Msg("Stored transaction hash")

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   fmt.Sprintf("Transaction hash %s stored", req.TxHash),
		"updated":   updated,
		"record":    rec,
		"stored_at": time.Now().Format(time.RFC3339),
	})
}

// HandleUpdateTransaction handles POST /update-transaction
func (h *Handler) HandleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TxHash == "" {
		h.writeError(w, http.StatusBadRequest, "tx_hash is required")
		return
	}

	status := ledger.StatusConfirmed
	if req.Status != "" {
		s, ok := parseStatus(req.Status)
		if !ok {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", req.Status))
			return
		}
		status = s
	}

	found := h.ledger.SetStatus(req.TxHash, status)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"found":      found,
		"message":    fmt.Sprintf("Transaction %s updated to %s", req.TxHash, status),
		"updated_at": time.Now().Format(time.RFC3339),
	})
}

// HandleGetTransactions handles GET /transactions?address=
// The ledger is reconciled first so each investment appears once.
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	all := h.ledger.Reconcile()

	records := all
	if address := r.URL.Query().Get("address"); address != "" {
		records = h.ledger.ListForUser(address)
	}
	if records == nil {
		records = []ledger.Record{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": records,
		"count":        len(records),
	})
}

func parseStatus(s string) (ledger.Status, bool) {
	switch st := ledger.Status(s); st {
	case ledger.StatusPending, ledger.StatusConfirmed, ledger.StatusFailed:
		return st, true
	}
	return "", false
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
