package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mycelian/postybirb/internal/api/respond"
	"github.com/mycelian/postybirb/internal/api/validate"
	"github.com/mycelian/postybirb/internal/websites"
)

type WebsiteHandler struct {
	registry *websites.Registry
}

// List GET /api/websites
func (h *WebsiteHandler) List(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, h.registry.Destinations())
}

// Model GET /api/websites/{website}/{kind}/model
func (h *WebsiteHandler) Model(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, err := validate.SubmissionType(vars["kind"])
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if !h.registry.Has(vars["website"]) {
		respond.WriteNotFound(w, "unknown website "+vars["website"])
		return
	}
	if !h.registry.Supports(vars["website"], kind) {
		respond.WriteBadRequest(w, vars["website"]+" does not accept "+string(kind)+" submissions")
		return
	}
	fields, err := h.registry.CreateDefaultModel(vars["website"], kind)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, fields)
}
