package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all scenario routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/scenarios", func(r chi.Router) {
		r.Post("/scores-by-analog", h.HandleScoresByAnalog)
		r.Get("/cache-status", h.HandleCacheStatus)
		r.Post("/clear-cache", h.HandleClearCache)
		r.Get("/clear-cache", h.HandleClearCache)
		r.Get("/analogs", h.HandleGetAnalogs)
		r.Get("/portfolios", h.HandleGetPortfolios)
	})
}
