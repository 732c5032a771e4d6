// Package api provides HTTP handlers for the health assistant API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/Asghar-123/health-agent/internal/agent"
	"github.com/Asghar-123/health-agent/internal/config"
	"github.com/Asghar-123/health-agent/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo store.Repository
	svc  *agent.Service
	cfg  *config.Config
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, svc *agent.Service, cfg *config.Config) *Handler {
	return &Handler{
		repo: repo,
		svc:  svc,
		cfg:  cfg,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decode reads a JSON body limited to the configured size.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	limit := int64(64 << 10)
	if h.cfg != nil && h.cfg.MaxRequestBody > 0 {
		limit = h.cfg.MaxRequestBody
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
