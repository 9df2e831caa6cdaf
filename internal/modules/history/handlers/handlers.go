// Package handlers provides HTTP handlers for analysis history.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/frontier/internal/modules/history"
	"github.com/rs/zerolog"
)

// Store is the read side of history.Repository.
type Store interface {
	List(ctx context.Context, filter history.ListFilter) ([]history.Entry, error)
	Get(ctx context.Context, id string) (*history.Entry, error)
	Stats(ctx context.Context) (*history.Stats, error)
}

// Handler handles history HTTP requests
type Handler struct {
	store Store
	log   zerolog.Logger
}

// NewHandler creates a new history handler
func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "history").Logger(),
	}
}

// HandleList handles GET /api/history?symbol=&kind=&limit=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := history.ListFilter{
		Symbol: q.Get("symbol"),
		Kind:   q.Get("kind"),
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			filter.Limit = parsedLimit
		}
	}

	entries, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list history")
		h.writeError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"entries": entries,
			"count":   len(entries),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGet handles GET /api/history/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request, id string) {
	entry, err := h.store.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "history entry not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to get history entry")
		h.writeError(w, http.StatusInternalServerError, "Failed to get history entry")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": entry,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleStats handles GET /api/history/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute history stats")
		h.writeError(w, http.StatusInternalServerError, "Failed to compute history stats")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": stats,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
