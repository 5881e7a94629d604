package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// custodyError maps store errors to HTTP responses. Every named custody
// failure keeps its own message; only unexpected errors collapse into a 500.
func custodyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrOutOfWindow),
		errors.Is(err, store.ErrRoleIneligible),
		errors.Is(err, store.ErrNotHolder):
		jsonError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrDuplicateActiveRequest),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, store.ErrAlreadyReturned),
		errors.Is(err, store.ErrTargetNotWaitlisted),
		errors.Is(err, store.ErrEquipmentInUse):
		jsonError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("custody operation failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
