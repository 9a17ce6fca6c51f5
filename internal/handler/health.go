package handler

import (
	"net/http"
)

// ProviderInfo reports whether a generation provider holds a credential.
type ProviderInfo struct {
	OpenModelConfigured bool `json:"open_model_configured"`
	GeneralConfigured   bool `json:"general_configured"`
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	providers ProviderInfo
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(providers ProviderInfo) *HealthHandler {
	return &HealthHandler{providers: providers}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready. The pipeline degrades to fixed fallback text with
// no providers configured, so readiness only reports which are available.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"providers": h.providers,
	})
}
