package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers portfolio optimization routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Post("/analyze", h.HandleAnalyze)
		r.Post("/optimize", h.HandleOptimize)
		r.Post("/frontier", h.HandleFrontier)
		r.Post("/monte-carlo", h.HandleMonteCarlo)
		r.Post("/correlation", h.HandleCorrelation)
	})
}
