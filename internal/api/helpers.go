package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mycelian/postybirb/internal/api/respond"
	"github.com/mycelian/postybirb/internal/api/validate"
	"github.com/mycelian/postybirb/internal/services"
)

const maxUploadBytes = 512 << 20

func writeNotFound(w http.ResponseWriter, msg string) { respond.WriteNotFound(w, msg) }

// decodeJSON reads the body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// pathID returns a UUID path variable. Anything else cannot name a stored record, so it is a 404.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := mux.Vars(r)[name]
	if err := validate.ID(name, id); err != nil {
		respond.WriteNotFound(w, err.Error())
		return "", false
	}
	return id, true
}

// multipartFile returns the "file" part of a multipart request as an upload.
// The caller closes the returned closer once the service call returns.
func multipartFile(r *http.Request) (*services.FileUpload, io.Closer, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, nil, err
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, nil, err
	}
	return &services.FileUpload{
		FileName: hdr.Filename,
		MimeType: hdr.Header.Get("Content-Type"),
		Reader:   f,
		Size:     hdr.Size,
		Origin:   "upload",
	}, f, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/")
}
