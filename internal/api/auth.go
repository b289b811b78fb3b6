package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/mbaromire/internal/auth"
)

// AuthHandler handles admin session endpoints.
type AuthHandler struct {
	Admin *auth.Admin
}

type loginRequest struct {
	AdminCode string `json:"admin_code"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, expires, err := h.Admin.Login(req.AdminCode)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			slog.Warn("admin login failed", "remote", r.RemoteAddr)
		}
		writeError(w, r, err, "")
		return
	}

	slog.Info("admin logged in", "remote", r.RemoteAddr)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		jsonError(w, http.StatusUnauthorized, "missing or invalid authorization header")
		return
	}

	if err := h.Admin.Logout(r.Context(), token); err != nil {
		writeError(w, r, err, "")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}
