package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/framehub-core/internal/audit"
)

// handleListAudit returns paginated command journal entries, newest first.
//
// Query parameters:
//   - device_id: filter by device
//   - command: filter by command (toggle, set_brightness, set_color, set_power, resync)
//   - outcome: ok or failed
//   - since: RFC 3339 timestamp; only entries at or after it
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeNotFound(w, "command journal not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		DeviceID: q.Get("device_id"),
		Command:  q.Get("command"),
		Outcome:  q.Get("outcome"),
	}

	if v := q.Get("outcome"); v != "" && v != audit.OutcomeOK && v != audit.OutcomeFailed {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "outcome must be ok or failed")
		return
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list command journal", "error", err)
		writeInternalError(w, "failed to list command journal")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
