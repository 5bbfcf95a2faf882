package api

import (
	"net/http"

	"github.com/mycelian/postybirb/internal/api/respond"
	"github.com/mycelian/postybirb/internal/services"
)

type WatcherHandler struct {
	watchers *services.DirectoryWatcherService
}

// List GET /api/directory-watchers
func (h *WatcherHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.watchers.List(r.Context())
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// Create POST /api/directory-watchers
func (h *WatcherHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateDirectoryWatcherRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	dw, err := h.watchers.Create(r.Context(), req)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, dw)
}

// Update PATCH /api/directory-watchers/{id}
func (h *WatcherHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req services.UpdateDirectoryWatcherRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	dw, err := h.watchers.Update(r.Context(), id, req)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, dw)
}

// Remove DELETE /api/directory-watchers/{id}
func (h *WatcherHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.watchers.Remove(r.Context(), id); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteNoContent(w)
}
