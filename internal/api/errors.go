package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/framehub-core/internal/control"
	"github.com/nerrad567/framehub-core/internal/device"
	"github.com/nerrad567/framehub-core/internal/hub"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
	ErrCodeUnsupported  = "unsupported"
	ErrCodeHub          = "hub_error"
	ErrCodeTimeout      = "timeout"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// toError maps an error returned by the registry or the control
// coordinator onto an HTTP status and error code.
// A composite failure stays 502 even when one of its writes timed out.
func toError(err error) Error {
	status, code := http.StatusBadGateway, ErrCodeHub
	switch {
	case errors.Is(err, device.ErrUnauthorized):
		status, code = http.StatusForbidden, ErrCodeUnauthorized
	case errors.Is(err, device.ErrInvalidArgument):
		status, code = http.StatusBadRequest, ErrCodeValidation
	case errors.Is(err, device.ErrCharacteristicUnsupported):
		status, code = http.StatusUnprocessableEntity, ErrCodeUnsupported
	case errors.Is(err, device.ErrDeviceNotFound), errors.Is(err, hub.ErrAccessoryNotFound):
		status, code = http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, device.ErrNoPrimaryHome):
		status, code = http.StatusConflict, ErrCodeConflict
	case errors.Is(err, control.ErrPartialCompositeFailure):
		status, code = http.StatusBadGateway, ErrCodeHub
	case errors.Is(err, control.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, ErrCodeTimeout
	}
	return Error{Status: status, Code: code, Message: err.Error()}
}

// writeDomainError writes the response for an error returned by the
// registry or the control coordinator.
func writeDomainError(w http.ResponseWriter, err error) {
	e := toError(err)
	writeJSON(w, e.Status, e)
}
