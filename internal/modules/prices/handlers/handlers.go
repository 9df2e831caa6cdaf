// Package handlers provides HTTP handlers for stored price data.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/modules/prices"
	"github.com/rs/zerolog"
)

// PriceStore is the read side of prices.Repository.
type PriceStore interface {
	ListSymbols(ctx context.Context) ([]prices.SymbolSummary, error)
	GetPricesForPeriod(ctx context.Context, symbol, period string) ([]prices.DailyPrice, error)
}

// DirectoryImporter is satisfied by prices.Importer.
type DirectoryImporter interface {
	ImportDirectory(ctx context.Context, dir string) (*prices.ImportSummary, error)
}

// Handler handles price HTTP requests
type Handler struct {
	store      PriceStore
	importer   DirectoryImporter
	defaultDir string
	log        zerolog.Logger
}

// NewHandler creates a new price handler. defaultDir is imported when the
// request names no directory.
func NewHandler(store PriceStore, importer DirectoryImporter, defaultDir string, log zerolog.Logger) *Handler {
	return &Handler{
		store:      store,
		importer:   importer,
		defaultDir: defaultDir,
		log:        log.With().Str("handler", "prices").Logger(),
	}
}

// HandleListSymbols handles GET /api/prices/symbols
func (h *Handler) HandleListSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.store.ListSymbols(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list symbols")
		h.writeError(w, http.StatusInternalServerError, "Failed to list symbols")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"symbols": symbols,
			"count":   len(symbols),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetPrices handles GET /api/prices/{symbol}?period=
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request, symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	period := r.URL.Query().Get("period")
	if period == "" {
		period = prices.DefaultPeriod
	}

	series, err := h.store.GetPricesForPeriod(r.Context(), symbol, period)
	if err != nil {
		if errors.Is(err, optimization.ErrInvalidInput) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get prices")
		h.writeError(w, http.StatusInternalServerError, "Failed to get prices")
		return
	}
	if len(series) == 0 {
		h.writeError(w, http.StatusNotFound, "no prices stored for "+symbol)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"symbol": symbol,
			"period": period,
			"prices": series,
			"count":  len(series),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleImport handles POST /api/prices/import
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dir string `json:"dir"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	dir := req.Dir
	if dir == "" {
		dir = h.defaultDir
	}
	if dir == "" {
		h.writeError(w, http.StatusBadRequest, "dir is required")
		return
	}

	summary, err := h.importer.ImportDirectory(r.Context(), dir)
	if err != nil {
		h.log.Error().Err(err).Str("dir", dir).Msg("Price import failed")
		h.writeError(w, http.StatusInternalServerError, "Price import failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": summary,
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
