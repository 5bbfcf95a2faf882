package api

import (
	"net/http"
	"time"

	"github.com/mycelian/postybirb/internal/api/respond"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	check func() (bool, map[string]bool)
}

// CheckHealth handles GET /api/health
// Always returns 200; body reports healthy/unhealthy. 500 indicates handler failure only.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	var components map[string]bool
	if h.check != nil {
		var ok bool
		ok, components = h.check()
		if ok {
			status = "healthy"
		}
	}
	response := map[string]interface{}{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().Format(time.RFC3339),
	}
	respond.WriteJSON(w, http.StatusOK, response)
}
