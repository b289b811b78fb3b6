package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/mbaromire/internal/store"
)

// SystemInfo describes the running deployment.
type SystemInfo struct {
	Driver string
	Cities []string
}

// SystemHandler handles service-level endpoints.
type SystemHandler struct {
	Store store.Store
	Info  SystemInfo
}

type healthResponse struct {
	Status   string `json:"status"`
	Store    string `json:"store"`
	Database string `json:"database"`
}

// Root handles GET /.
func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"message": "MbaroMire Backend Running"})
}

// Health handles GET /api/health.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Store: h.Info.Driver, Database: "connected"}
	if err := h.Store.Ping(r.Context()); err != nil {
		slog.Warn("health check failed", "error", err)
		resp.Status = "unavailable"
		resp.Database = "not connected"
		jsonResponse(w, http.StatusServiceUnavailable, resp)
		return
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Cities handles GET /api/cities.
func (h *SystemHandler) Cities(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string][]string{"cities": h.Info.Cities})
}
