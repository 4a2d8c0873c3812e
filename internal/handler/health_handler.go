package handler

import (
	"net/http"
	"time"

	"auth-gateway/internal/container"
)

// HealthHandler handles liveness and readiness requests
type HealthHandler struct {
	container *container.Container
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container) *HealthHandler {
	return &HealthHandler{
		container: container,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK        bool              `json:"ok"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
	Service   string            `json:"service"`
}

// Root handles GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"message": "auth gateway running",
	}, h.container.GetLogger())
}

// Check handles GET /health with read-only collaborator checks. Failure
// text is replaced by "unavailable" unless error details are exposed.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()
	logger.Debug("Health check requested")

	checks, err := h.container.Health(r.Context())
	if !h.container.GetConfig().ExposeErrorDetails {
		for name, result := range checks {
			if result != "ok" {
				checks[name] = "unavailable"
			}
		}
	}

	response := HealthResponse{
		OK:        err == nil,
		Checks:    checks,
		Timestamp: time.Now().UTC(),
		Service:   "auth-gateway",
	}

	status := http.StatusOK
	if err != nil {
		logger.WithError(err).Warn("Health check failed")
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response, logger)
}
