package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/store-transaction", h.HandleStoreTransaction)
	r.Post("/update-transaction", h.HandleUpdateTransaction)
	r.Get("/transactions", h.HandleGetTransactions)
}
