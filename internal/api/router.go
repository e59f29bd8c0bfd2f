package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.withRequestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)
	r.Use(s.cors)
	r.Use(middleware.RequestSize(maxRequestBodySize))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		r.Get("/groups", s.handleListGroups)
		r.Get("/categories", s.handleListCategories)
		r.Post("/refresh", s.handleRefresh)

		r.Route("/devices/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetDevice)
			r.Post("/toggle", s.handleToggle)
			r.Put("/brightness", s.handleSetBrightness)
			r.Put("/color", s.handleSetColor)
			r.Post("/resync", s.handleResync)
		})

		r.Route("/lights", func(r chi.Router) {
			r.Get("/", s.handleListLights)
			r.Get("/rooms", s.handleLightsByRoom)
			r.Post("/on", s.handleAllOn)
			r.Post("/off", s.handleAllOff)
		})

		r.Get("/errors/last", s.handleLastError)
		r.Delete("/errors/last", s.handleClearError)

		r.Get("/audit", s.handleListAudit)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleStatus reports hub authorization and the primary home.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.registry.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"authorization": snap.Authorization,
		"home":          snap.HomeName(),
		"device_count":  len(snap.Accessories),
		"version":       s.version,
	})
}
