package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSubmission_JSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/submissions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"s1"}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, runCreateSubmission(newClient(srv.URL), "MESSAGE", "n", "hello", "", &out))
	assert.Equal(t, "MESSAGE", got["type"])
	assert.Equal(t, "hello", got["message"])
	assert.Contains(t, out.String(), `"id": "s1"`)
}

func TestCreateSubmission_Multipart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "FILE", r.FormValue("type"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "cat.png", hdr.Filename)
		assert.Equal(t, "png", string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	require.NoError(t, runCreateSubmission(newClient(srv.URL), "FILE", "", "", path, io.Discard))
}

func TestCheck_ReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Bad Request"}`))
	}))
	defer srv.Close()

	err := runSchedule(newClient(srv.URL), "s1", "SINGLE", "", true, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 400")
}

func TestCreateSubmission_RequiresType(t *testing.T) {
	assert.Error(t, runCreateSubmission(newClient("http://127.0.0.1:1"), "", "", "", "", io.Discard))
}

func TestPrintJSON_PassesThroughNonJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printJSON(&out, []byte("plain")))
	assert.Equal(t, "plain\n", out.String())
}
