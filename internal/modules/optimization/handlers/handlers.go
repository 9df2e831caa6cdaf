// Package handlers provides HTTP handlers for portfolio optimization.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps request bodies; universes are small.
const maxBodyBytes = 1 << 20

// Optimizer is the subset of optimization.Service used by the handlers.
type Optimizer interface {
	Analyze(ctx context.Context, req optimization.Request) (*optimization.AnalysisReport, error)
	Optimize(ctx context.Context, req optimization.Request, mode optimization.Mode, target *float64) (*optimization.OptimizationResult, error)
	Frontier(ctx context.Context, req optimization.Request, numPoints int) (*optimization.Frontier, error)
	MonteCarlo(ctx context.Context, req optimization.Request, numPortfolios int, seed *uint64) (*optimization.MonteCarloResult, error)
	Correlation(ctx context.Context, req optimization.Request) (*optimization.CorrelationMatrix, error)
}

// Handler handles portfolio optimization HTTP requests
type Handler struct {
	service Optimizer
	log     zerolog.Logger
}

// NewHandler creates a new optimization handler
func NewHandler(service Optimizer, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "optimization").Logger(),
	}
}

type optimizeRequest struct {
	optimization.Request
	Mode         string   `json:"mode"`
	TargetReturn *float64 `json:"target_return,omitempty"`
}

type frontierRequest struct {
	optimization.Request
	NumPoints int `json:"num_points"`
}

type monteCarloRequest struct {
	optimization.Request
	NumPortfolios int     `json:"num_portfolios"`
	Seed          *uint64 `json:"seed,omitempty"`
}

// HandleAnalyze handles POST /api/portfolio/analyze
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req optimization.Request
	if !h.decode(w, r, &req) {
		return
	}

	report, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "Portfolio analysis failed")
		return
	}
	h.writeData(w, report)
}

// HandleOptimize handles POST /api/portfolio/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if !h.decode(w, r, &req) {
		return
	}

	modeName := req.Mode
	if modeName == "" {
		modeName = string(optimization.ModeMaxSharpe)
	}
	mode, ok := optimization.ParseMode(modeName)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "unknown mode: "+req.Mode)
		return
	}
	if mode == optimization.ModeTargetReturn && req.TargetReturn == nil {
		h.writeError(w, http.StatusBadRequest, "target_return is required for mode "+modeName)
		return
	}

	result, err := h.service.Optimize(r.Context(), req.Request, mode, req.TargetReturn)
	if err != nil {
		h.writeServiceError(w, err, "Portfolio optimization failed")
		return
	}
	h.writeData(w, result)
}

// HandleFrontier handles POST /api/portfolio/frontier
func (h *Handler) HandleFrontier(w http.ResponseWriter, r *http.Request) {
	var req frontierRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.NumPoints < 0 {
		h.writeError(w, http.StatusBadRequest, "num_points must be positive")
		return
	}

	frontier, err := h.service.Frontier(r.Context(), req.Request, req.NumPoints)
	if err != nil {
		h.writeServiceError(w, err, "Efficient frontier failed")
		return
	}
	h.writeData(w, frontier)
}

// HandleMonteCarlo handles POST /api/portfolio/monte-carlo
func (h *Handler) HandleMonteCarlo(w http.ResponseWriter, r *http.Request) {
	var req monteCarloRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.NumPortfolios < 0 {
		h.writeError(w, http.StatusBadRequest, "num_portfolios must be positive")
		return
	}

	result, err := h.service.MonteCarlo(r.Context(), req.Request, req.NumPortfolios, req.Seed)
	if err != nil {
		h.writeServiceError(w, err, "Monte Carlo simulation failed")
		return
	}
	h.writeData(w, result)
}

// HandleCorrelation handles POST /api/portfolio/correlation
func (h *Handler) HandleCorrelation(w http.ResponseWriter, r *http.Request) {
	var req optimization.Request
	if !h.decode(w, r, &req) {
		return
	}

	corr, err := h.service.Correlation(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "Correlation failed")
		return
	}
	h.writeData(w, corr)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// StatusFor maps optimization errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, optimization.ErrInvalidInput),
		errors.Is(err, optimization.ErrInsufficientAssets),
		errors.Is(err, optimization.ErrInsufficientData),
		errors.Is(err, optimization.ErrInfeasibleConstraints):
		return http.StatusBadRequest
	case errors.Is(err, optimization.ErrPricesNotFound):
		return http.StatusNotFound
	case errors.Is(err, optimization.ErrOptimizationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg(msg)
		h.writeError(w, status, msg)
		return
	}
	h.log.Warn().Err(err).Int("status", status).Msg(msg)
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
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
