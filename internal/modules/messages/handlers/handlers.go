// Package handlers exposes the chat transcript over HTTP.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/domain"
	"github.com/rwagpt/agent/internal/modules/messages"
)

// MaxLimit caps the page size a client may request
const MaxLimit = 500

// Handler serves the transcript
type Handler struct {
	store domain.MessageStore
	log   zerolog.Logger
}

// NewHandler creates a new messages handler
func NewHandler(store domain.MessageStore, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "messages").Logger(),
	}
}

// RegisterRoutes registers the messages routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/messages", h.HandleGetMessages)
}

// HandleGetMessages handles GET /messages?limit=&role=
func (h *Handler) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	limit := messages.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "limit must be a positive integer"})
			return
		}
		limit = min(n, MaxLimit)
	}

	var (
		msgs []domain.Message
		err  error
	)
	switch role := r.URL.Query().Get("role"); role {
	case "":
		msgs, err = h.store.FetchRecent(r.Context(), limit)
	case domain.RoleUser, domain.RoleAgent:
		msgs, err = h.store.FetchByRole(r.Context(), role, limit)
	default:
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "role must be user or agent"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch messages")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Failed to fetch messages: " + err.Error()})
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
		"count":    len(msgs),
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
