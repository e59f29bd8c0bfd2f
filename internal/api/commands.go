package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/framehub-core/internal/control"
)

// brightnessRequest is the body of PUT /devices/{id}/brightness.
type brightnessRequest struct {
	Value *int `json:"value"`
}

// colorRequest is the body of PUT /devices/{id}/color.
type colorRequest struct {
	Hue        *int `json:"hue"`
	Saturation *int `json:"saturation"`
}

// outcomeResponse is one device of a bulk power command.
type outcomeResponse struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
	OK       bool   `json:"ok"`
	Error    *Error `json:"error,omitempty"`
}

// handleToggle flips a light's power.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.control.Toggle(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeDevice(w, id)
}

// handleSetBrightness sets a light's brightness (0-100).
func (s *Server) handleSetBrightness(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req brightnessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "value is required")
		return
	}

	if err := s.control.SetBrightness(r.Context(), id, *req.Value); err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeDevice(w, id)
}

// handleSetColor sets a light's hue (0-360) and saturation (0-100) together.
func (s *Server) handleSetColor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req colorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Hue == nil || req.Saturation == nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "hue and saturation are required")
		return
	}

	if err := s.control.SetColor(r.Context(), id, *req.Hue, *req.Saturation); err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeDevice(w, id)
}

// handleResync re-reads a device's writable characteristics from the hub.
func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.control.Resync(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeDevice(w, id)
}

func (s *Server) handleAllOn(w http.ResponseWriter, r *http.Request) {
	outcomes, err := s.control.AllOn(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOutcomes(w, outcomes)
}

func (s *Server) handleAllOff(w http.ResponseWriter, r *http.Request) {
	outcomes, err := s.control.AllOff(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeOutcomes(w, outcomes)
}

// handleLastError returns the most recent command failure, or null.
func (s *Server) handleLastError(w http.ResponseWriter, _ *http.Request) {
	err := s.control.LastError()
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]any{"error": nil})
		return
	}
	e := toError(err)
	writeJSON(w, http.StatusOK, map[string]any{"error": e})
}

// handleClearError clears the last command failure.
func (s *Server) handleClearError(w http.ResponseWriter, _ *http.Request) {
	s.control.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

// writeDevice responds with the device's state after a confirmed command.
func (s *Server) writeDevice(w http.ResponseWriter, id string) {
	dev, err := s.registry.Device(id)
	if err != nil {
		// Removed by a hub event between confirmation and this read.
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// writeOutcomes responds with one entry per light touched by a bulk
// command. The status is 200 even when some lights failed; failed counts
// them.
func writeOutcomes(w http.ResponseWriter, outcomes []control.Outcome) {
	out := make([]outcomeResponse, 0, len(outcomes))
	failed := 0
	for _, o := range outcomes {
		resp := outcomeResponse{DeviceID: o.DeviceID, Name: o.Name, OK: o.Err == nil}
		if o.Err != nil {
			e := toError(o.Err)
			resp.Error = &e
			failed++
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"outcomes": out,
		"count":    len(out),
		"failed":   failed,
	})
}
