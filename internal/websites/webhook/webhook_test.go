package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/websites"
)

func register(t *testing.T, url string, retries int) *websites.Registry {
	t.Helper()
	r := websites.NewRegistry()
	site := New(Options{URL: url, MaxRetries: retries, BaseBackoff: time.Millisecond, Timeout: 2 * time.Second})
	if err := site.Register(r); err != nil {
		t.Fatalf("register: %v", err)
	}
	return r
}

func postData() websites.PostData {
	return websites.PostData{
		Submission: &model.Submission{ID: "s1", Type: model.SubmissionTypeMessage},
		Fields: model.FieldData{
			websites.FieldTitle:       "hello",
			websites.FieldDescription: map[string]any{"overrideDefault": true, "description": "body"},
			websites.FieldTags:        map[string]any{"overrideDefault": true, "tags": []any{"a", "b"}},
		},
	}
}

func TestWebhook_MessageOnly(t *testing.T) {
	r := register(t, "http://unused", 0)
	if r.Supports(Name, model.SubmissionTypeFile) {
		t.Fatalf("webhook must not support FILE")
	}
}

func TestWebhook_Success(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewDecoder(req.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"url":"https://example.test/p/1"}`))
	}))
	defer srv.Close()

	r := register(t, srv.URL, 0)
	res, err := r.Post(context.Background(), Name, model.SubmissionTypeMessage, postData())
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if res.Status != websites.PostSuccess || res.SourceURL != "https://example.test/p/1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got.Title != "hello" || got.Description != "body" || len(got.Tags) != 2 || got.SubmissionID != "s1" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestWebhook_ClientErrorRejectedWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	r := register(t, srv.URL, 3)
	res, _ := r.Post(context.Background(), Name, model.SubmissionTypeMessage, postData())
	if res.Status != websites.PostRejected {
		t.Fatalf("expected rejected, got %+v", res)
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx must not be retried, calls=%d", calls.Load())
	}
}

func TestWebhook_ServerErrorRetriedThenFailed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := register(t, srv.URL, 2)
	res, _ := r.Post(context.Background(), Name, model.SubmissionTypeMessage, postData())
	if res.Status != websites.PostFailed {
		t.Fatalf("expected failed, got %+v", res)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 1 attempt + 2 retries, got %d", calls.Load())
	}
}

func TestWebhook_RecoversAfterTransientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := register(t, srv.URL, 2)
	res, _ := r.Post(context.Background(), Name, model.SubmissionTypeMessage, postData())
	if res.Status != websites.PostSuccess {
		t.Fatalf("expected success after retry, got %+v", res)
	}
}

func TestWebhook_ValidateRequiresTitle(t *testing.T) {
	r := register(t, "http://unused", 0)
	res, err := r.Validate(context.Background(), Name, model.SubmissionTypeMessage, websites.PostData{Fields: model.FieldData{}})
	if err != nil || res.OK() {
		t.Fatalf("expected title error, got %+v err=%v", res, err)
	}
}
