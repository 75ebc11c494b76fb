package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the agent routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/ask-agent", h.HandleAsk)
	r.Post("/recommendations", h.HandleRecommendations)
}
