package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/framehub-core/internal/device"
)

// categoryResponse is one entry of GET /categories.
type categoryResponse struct {
	Category    device.Category `json:"category"`
	DisplayName string          `json:"display_name"`
	Icon        string          `json:"icon"`
	Count       int             `json:"count"`
}

// handleListGroups returns the current device groups, sorted by display name.
// The list is empty until the hub has authorized access.
func (s *Server) handleListGroups(w http.ResponseWriter, _ *http.Request) {
	groups := s.registry.Groups()
	if groups == nil {
		groups = []device.Group{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"groups": groups,
		"count":  len(groups),
	})
}

// handleListCategories returns every category in precedence order with its
// presentation metadata and device count.
func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	all := device.AllCategories()
	out := make([]categoryResponse, 0, len(all))
	for _, c := range all {
		out = append(out, categoryResponse{
			Category:    c,
			DisplayName: c.DisplayName(),
			Icon:        c.Icon(),
			Count:       s.registry.DeviceCount(c),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

// handleRefresh pulls the primary home's accessories from the hub and
// returns the rebuilt groups.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	groups, err := s.registry.Refresh(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if groups == nil {
		groups = []device.Group{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"groups": groups,
		"count":  len(groups),
	})
}

// handleGetDevice returns a single device with its category-specific state.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.registry.Device(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleListLights returns every light, sorted by name.
func (s *Server) handleListLights(w http.ResponseWriter, _ *http.Request) {
	lights := s.registry.Lights()
	writeJSON(w, http.StatusOK, map[string]any{
		"lights": lights,
		"count":  len(lights),
	})
}

// handleLightsByRoom returns the lights grouped by room name.
func (s *Server) handleLightsByRoom(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.LightsByRoom())
}
