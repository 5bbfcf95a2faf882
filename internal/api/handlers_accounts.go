package api

import (
	"net/http"

	"github.com/mycelian/postybirb/internal/api/respond"
	"github.com/mycelian/postybirb/internal/api/validate"
	"github.com/mycelian/postybirb/internal/services"
)

// AccountHandler provides HTTP transport for destination accounts.
type AccountHandler struct {
	accounts *services.AccountService
}

// List GET /api/accounts
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accts, err := h.accounts.List(r.Context())
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, accts)
}

// Create POST /api/accounts
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.CreateAccount(req.Name, req.Website); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	acct, err := h.accounts.Create(r.Context(), req)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, acct)
}

// Get GET /api/accounts/{id}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	acct, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, acct)
}

// Update PATCH /api/accounts/{id}
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req services.UpdateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	acct, err := h.accounts.Update(r.Context(), id, req)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, acct)
}

// Remove DELETE /api/accounts/{id}
func (h *AccountHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.accounts.Remove(r.Context(), id); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteNoContent(w)
}

// Clear POST /api/accounts/{id}/clear
func (h *AccountHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	acct, err := h.accounts.ClearData(r.Context(), id)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, acct)
}
