package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/postybirb/internal/filestore"
	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/services"
	"github.com/mycelian/postybirb/internal/store/sqlite"
	"github.com/mycelian/postybirb/internal/store/storetest"
	"github.com/mycelian/postybirb/internal/websites"
	"github.com/mycelian/postybirb/internal/websites/testsite"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	st, err := sqlite.New(context.Background(), filepath.Join(dir, "api.db"), &storetest.Recorder{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	reg := websites.NewRegistry()
	require.NoError(t, testsite.New().Register(reg))

	log := zerolog.Nop()
	options := services.NewWebsiteOptionService(st, reg, log)
	subs := services.NewSubmissionService(st, filestore.New(filepath.Join(dir, "files")), options, log)
	settings := services.NewSettingsService(st, dir, services.StartupOptions{AppDataPath: dir, Port: "9487"}, log)
	_, err = settings.EnsureDefault(context.Background())
	require.NoError(t, err)

	return NewRouter(Deps{
		Submissions: subs,
		Files:       services.NewFileSubmissionService(st, subs, log),
		Options:     options,
		Accounts:    services.NewAccountService(st, reg, log),
		Watchers:    services.NewDirectoryWatcherService(st, log),
		Settings:    settings,
		Posts:       services.NewPostService(st, options, reg, 5*time.Second, log),
		Registry:    reg,
		Health:      func() (bool, map[string]bool) { return true, map[string]bool{"store": true} },
		Log:         log,
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[map[string]any](t, rr)
	assert.Equal(t, "healthy", body["status"])
}

func TestSubmissionLifecycle(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodPost, "/api/submissions", map[string]any{"type": "MESSAGE", "message": "hi", "name": "first"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	sub := decode[model.Submission](t, rr)
	require.Len(t, sub.Options, 1)

	rr = do(t, h, http.MethodGet, "/api/submissions/"+sub.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodPatch, "/api/submissions/"+sub.ID, map[string]any{"metadata": map[string]any{"note": "x"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, h, http.MethodPost, "/api/submissions/"+sub.ID+"/duplicate", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	dup := decode[model.Submission](t, rr)
	assert.NotEqual(t, sub.ID, dup.ID)

	rr = do(t, h, http.MethodGet, "/api/submissions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.Submission](t, rr), 2)

	rr = do(t, h, http.MethodDelete, "/api/submissions/"+sub.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/submissions/"+sub.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSubmission_InvalidInput(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodPost, "/api/submissions", map[string]any{"type": "BANANA"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/submissions", bytes.NewBufferString("{"))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/submissions/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/nothing-here", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFileSubmission_Multipart(t *testing.T) {
	h := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("type", "FILE"))
	fw, err := mw.CreateFormFile("file", "cat.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("not really a png"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/submissions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	sub := decode[model.Submission](t, rr)
	require.Len(t, sub.Files, 1)
	assert.Equal(t, "cat.png", sub.Files[0].FileName)

	rr = do(t, h, http.MethodDelete, "/api/submissions/"+sub.ID+"/files/"+sub.Files[0].ID, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Empty(t, decode[model.Submission](t, rr).Files)
}

func TestAccountsAndPost(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodPost, "/api/accounts", map[string]any{"name": "main", "website": testsite.Name})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	acct := decode[model.Account](t, rr)

	rr = do(t, h, http.MethodPost, "/api/accounts", map[string]any{"name": "x", "website": "nowhere"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/submissions", map[string]any{"type": "MESSAGE", "message": "hello"})
	require.Equal(t, http.StatusCreated, rr.Code)
	sub := decode[model.Submission](t, rr)

	rr = do(t, h, http.MethodPatch, "/api/submissions/"+sub.ID, map[string]any{
		"newOrUpdatedOptions": []map[string]any{{"accountId": acct.ID}},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, h, http.MethodGet, "/api/submissions/"+sub.ID+"/validate", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, decode[[]services.OptionValidation](t, rr), 1)

	rr = do(t, h, http.MethodPost, "/api/submissions/"+sub.ID+"/post", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rep := decode[services.PostReport](t, rr)
	require.Len(t, rep.Outcomes, 1)
	assert.Equal(t, websites.PostSuccess, rep.Outcomes[0].Result.Status)

	rr = do(t, h, http.MethodDelete, "/api/accounts/"+acct.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestWatchersAndSettings(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodPost, "/api/directory-watchers", map[string]any{"path": t.TempDir()})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	dw := decode[model.DirectoryWatcher](t, rr)
	assert.Equal(t, model.ImportActionNewSubmission, dw.ImportAction)

	rr = do(t, h, http.MethodPatch, "/api/directory-watchers/"+dw.ID, map[string]any{"importAction": "BOGUS"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodDelete, "/api/directory-watchers/"+dw.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	all := decode[[]model.Settings](t, rr)
	require.Len(t, all, 1)

	rr = do(t, h, http.MethodPatch, "/api/settings/"+all[0].ID, map[string]any{"settings": map[string]any{"hiddenWebsites": []string{"test"}}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"test"}, decode[model.Settings](t, rr).Settings.HiddenWebsites)

	rr = do(t, h, http.MethodPatch, "/api/settings/startup", map[string]any{"port": "80"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPatch, "/api/settings/startup", map[string]any{"port": "9999"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "9999", decode[services.StartupOptions](t, rr).Port)
}

func TestWebsites(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodGet, "/api/websites", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]websites.Destination](t, rr), 1)

	rr = do(t, h, http.MethodGet, "/api/websites/test/FILE/model", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, decode[map[string]any](t, rr), "title")

	rr = do(t, h, http.MethodGet, "/api/websites/nowhere/FILE/model", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
