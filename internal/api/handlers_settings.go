package api

import (
	"net/http"

	"github.com/mycelian/postybirb/internal/api/respond"
	"github.com/mycelian/postybirb/internal/services"
)

type SettingsHandler struct {
	settings *services.SettingsService
}

// List GET /api/settings
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.settings.List(r.Context())
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// Update PATCH /api/settings/{id}
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req services.UpdateSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	s, err := h.settings.Update(r.Context(), id, req)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, s)
}

// GetStartup GET /api/settings/startup
func (h *SettingsHandler) GetStartup(w http.ResponseWriter, r *http.Request) {
	opts, err := h.settings.StartupOptions()
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, opts)
}

// UpdateStartup PATCH /api/settings/startup
// Takes effect on the next start.
func (h *SettingsHandler) UpdateStartup(w http.ResponseWriter, r *http.Request) {
	var req services.StartupOptions
	if err := decodeJSON(r, &req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	opts, err := h.settings.UpdateStartupOptions(req)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, opts)
}
