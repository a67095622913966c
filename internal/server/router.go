package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the report service's HTTP surface.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", h.HandleAnalyze)
		r.Get("/result", h.HandleResult)
		r.Get("/window", h.HandleGetWindow)
		r.Put("/window", h.HandleSetWindow)
		r.Get("/trends", h.HandleTrends)
		r.Get("/chart", h.HandleChartPNG)
		r.Post("/export", h.HandleExport)
	})
	r.Get("/ws", h.HandleWebSocket)
	r.Get("/healthz", h.HandleHealthz)

	return r
}
