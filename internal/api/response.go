package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/mbaromire/internal/auth"
	"github.com/erazemk/mbaromire/internal/model"
	"github.com/erazemk/mbaromire/internal/store"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target)
}

// writeError maps a domain error onto an HTTP status. what names the
// resource in not-found messages.
func writeError(w http.ResponseWriter, r *http.Request, err error, what string) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, model.ErrNotFound):
		jsonError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, model.ErrInsufficientQuantity):
		jsonError(w, http.StatusBadRequest, "not enough quantity")
	case errors.Is(err, model.ErrInvalidStatus):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		jsonError(w, http.StatusUnauthorized, "invalid admin code")
	case errors.Is(err, store.ErrUnavailable):
		slog.Error("store unavailable", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, http.StatusInternalServerError, "database unavailable")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
