// Package api implements the PressWatch HTTP API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a chi router with all API routes mounted.
// metricsHandler, if non-nil, is served at GET /metrics.
func NewRouter(h *Handler, metricsHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/groups/{groupId}", func(r chi.Router) {
		r.Get("/items", h.ListItems)
		r.Put("/items", h.SaveItem)
		r.Get("/items/{itemId}", h.GetItem)
		r.Post("/crawl", h.RunGroup)
		r.Post("/notify", h.Notify)
	})

	r.Post("/crawl", h.CrawlSource)
	r.Post("/summarize", h.Summarize)

	return r
}
