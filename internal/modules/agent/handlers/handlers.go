// Package handlers provides the conversational HTTP endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/modules/agent"
	"github.com/rwagpt/agent/internal/modules/recommendation"
)

// Asker answers chat messages
type Asker interface {
	Ask(ctx context.Context, req agent.AskRequest) (agent.AskResponse, error)
	Recommend(prompt string) []recommendation.ScoredRecommendation
}

// Handler handles agent HTTP requests
type Handler struct {
	agent Asker
	log   zerolog.Logger
}

// NewHandler creates a new agent handler
func NewHandler(a Asker, log zerolog.Logger) *Handler {
	return &Handler{
		agent: a,
		log:   log.With().Str("handler", "agent").Logger(),
	}
}

// RecommendationsRequest is the body of POST /recommendations
type RecommendationsRequest struct {
	Prompt string `json:"prompt"`
}

// HandleAsk handles POST /ask-agent
func (h *Handler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req agent.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}

	resp, err := h.agent.Ask(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Msg("Agent failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleRecommendations handles POST /recommendations
func (h *Handler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req RecommendationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return
	}

	recs := h.agent.Recommend(strings.TrimSpace(req.Prompt))
	fallback := len(recs) > 0 && recs[0].Fallback

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"recommendations": recs,
		"count":           len(recs),
		"fallback":        fallback,
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
