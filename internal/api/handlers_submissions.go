package api

import (
	"errors"
	"net/http"

	"github.com/mycelian/postybirb/internal/api/respond"
	"github.com/mycelian/postybirb/internal/api/validate"
	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/services"
)

// SubmissionHandler provides HTTP transport for submissions, their files and posting.
type SubmissionHandler struct {
	subs    *services.SubmissionService
	files   *services.FileSubmissionService
	options *services.WebsiteOptionService
	posts   *services.PostService
}

// Create POST /api/submissions
// Accepts JSON, or multipart with name/type/message fields and a "file" part.
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var (
		req    services.CreateSubmissionRequest
		upload *services.FileUpload
	)
	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			respond.WriteBadRequest(w, "invalid multipart body")
			return
		}
		req.Name = r.FormValue("name")
		req.Type = model.SubmissionType(r.FormValue("type"))
		req.Message = r.FormValue("message")
		up, closer, err := multipartFile(r)
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			respond.WriteBadRequest(w, "invalid file part")
			return
		default:
			defer func() { _ = closer.Close() }()
			upload = up
		}
	} else if err := decodeJSON(r, &req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.CreateSubmission(req.Name); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	sub, err := h.subs.Create(r.Context(), req, upload)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, sub)
}

// List GET /api/submissions
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subs.List(r.Context())
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, subs)
}

// Get GET /api/submissions/{id}
func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sub, err := h.subs.Get(r.Context(), id)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, sub)
}

// Update PATCH /api/submissions/{id}
func (h *SubmissionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req services.UpdateSubmissionRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	res, err := h.subs.Update(r.Context(), id, req)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

// Remove DELETE /api/submissions/{id}
func (h *SubmissionHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.subs.Remove(r.Context(), id); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteNoContent(w)
}

// Duplicate POST /api/submissions/{id}/duplicate
func (h *SubmissionHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sub, err := h.subs.Duplicate(r.Context(), id)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, sub)
}

// AppendFile POST /api/submissions/{id}/files
func (h *SubmissionHandler) AppendFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	up, closer, err := multipartFile(r)
	if err != nil {
		respond.WriteBadRequest(w, "a multipart \"file\" part is required")
		return
	}
	defer func() { _ = closer.Close() }()

	sub, err := h.files.AppendFile(r.Context(), id, up)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, sub)
}

// RemoveFile DELETE /api/submissions/{id}/files/{fileId}
func (h *SubmissionHandler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fileID, ok := pathID(w, r, "fileId")
	if !ok {
		return
	}
	sub, err := h.files.RemoveFile(r.Context(), id, fileID)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, sub)
}

// SetAltFile PUT /api/submissions/{id}/files/{fileId}/alt
func (h *SubmissionHandler) SetAltFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fileID, ok := pathID(w, r, "fileId")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	up, closer, err := multipartFile(r)
	if err != nil {
		respond.WriteBadRequest(w, "a multipart \"file\" part is required")
		return
	}
	defer func() { _ = closer.Close() }()

	f, err := h.files.SetAltFile(r.Context(), id, fileID, up)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, f)
}

// Validate GET /api/submissions/{id}/validate
func (h *SubmissionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.options.Validate(r.Context(), id)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

// Post POST /api/submissions/{id}/post
// Blocks until every destination answers; the request context cancels in-flight posts.
func (h *SubmissionHandler) Post(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rep, err := h.posts.Post(r.Context(), id)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rep)
}

// CancelPost POST /api/submissions/{id}/post/cancel
func (h *SubmissionHandler) CancelPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]bool{"cancelled": h.posts.Cancel(id)})
}
