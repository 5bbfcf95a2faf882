package websites

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mycelian/postybirb/internal/model"
)

func messageCap(post func(ctx context.Context, d PostData) (PostResult, error)) Capability {
	if post == nil {
		post = func(context.Context, PostData) (PostResult, error) {
			return PostResult{Status: PostSuccess}, nil
		}
	}
	return Capability{
		Kind:         model.SubmissionTypeMessage,
		DefaultModel: BaseModel,
		Validate: func(_ context.Context, d PostData) (ValidationResult, error) {
			var res ValidationResult
			RequireTitle(&res, d.Fields)
			return res, nil
		},
		Post: post,
	}
}

func TestRegister_Rejects(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("a", "A", messageCap(nil)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register("a", "A", messageCap(nil)); err == nil {
		t.Fatalf("duplicate destination must fail")
	}
	if err := r.Register("b", "B", messageCap(nil), messageCap(nil)); err == nil {
		t.Fatalf("duplicate kind must fail")
	}
	if err := r.Register("c", "C", Capability{Kind: model.SubmissionTypeFile}); err == nil {
		t.Fatalf("incomplete capability must fail")
	}
	if err := r.Register("d", "D"); err == nil {
		t.Fatalf("no capabilities must fail")
	}
}

func TestSupportsAndContractViolations(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("msg", "Msg", messageCap(nil))

	if !r.Supports("msg", model.SubmissionTypeMessage) || r.Supports("msg", model.SubmissionTypeFile) {
		t.Fatalf("supports mismatch")
	}
	if r.Supports("nope", model.SubmissionTypeMessage) {
		t.Fatalf("unknown destination must not be supported")
	}

	_, err := r.CreateDefaultModel("msg", model.SubmissionTypeFile)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	_, err = r.Validate(context.Background(), "nope", model.SubmissionTypeMessage, PostData{})
	if !errors.Is(err, ErrUnknownDestination) {
		t.Fatalf("expected ErrUnknownDestination, got %v", err)
	}
	if _, err := r.Post(context.Background(), "msg", model.SubmissionTypeFile, PostData{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported from post, got %v", err)
	}
}

func TestCreateDefaultModel_FreshCopy(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("msg", "Msg", messageCap(nil))

	a, _ := r.CreateDefaultModel("msg", model.SubmissionTypeMessage)
	a[FieldTitle] = "mutated"
	a[FieldTags].(map[string]any)["tags"] = []any{"x"}

	b, _ := r.CreateDefaultModel("msg", model.SubmissionTypeMessage)
	if b[FieldTitle] != "" {
		t.Fatalf("default model leaked mutation: %v", b[FieldTitle])
	}
	if tags := b[FieldTags].(map[string]any)["tags"].([]any); len(tags) != 0 {
		t.Fatalf("nested default leaked mutation: %v", tags)
	}
}

func TestValidate_DataIssuesInResult(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("msg", "Msg", messageCap(nil))

	res, err := r.Validate(context.Background(), "msg", model.SubmissionTypeMessage, PostData{Fields: model.FieldData{}})
	if err != nil {
		t.Fatalf("data problems must not be errors: %v", err)
	}
	if res.OK() || res.Errors[0].Field != FieldTitle {
		t.Fatalf("expected title error, got %+v", res)
	}
}

func TestPost_CancelledContextNeverSucceeds(t *testing.T) {
	r := NewRegistry()
	called := false
	_ = r.Register("msg", "Msg", messageCap(func(context.Context, PostData) (PostResult, error) {
		called = true
		return PostResult{Status: PostSuccess}, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := r.Post(ctx, "msg", model.SubmissionTypeMessage, PostData{})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if res.Status != PostCancelled || called {
		t.Fatalf("expected cancelled without calling destination, got %+v called=%v", res, called)
	}
}

func TestPost_CancelledDuringCall(t *testing.T) {
	r := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	_ = r.Register("msg", "Msg", messageCap(func(context.Context, PostData) (PostResult, error) {
		cancel()
		return PostResult{}, errors.New("connection reset")
	}))

	res, _ := r.Post(ctx, "msg", model.SubmissionTypeMessage, PostData{})
	if res.Status != PostCancelled {
		t.Fatalf("expected cancelled, got %+v", res)
	}
}

func TestPost_DeadlineIsFailure(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("msg", "Msg", messageCap(func(ctx context.Context, _ PostData) (PostResult, error) {
		<-ctx.Done()
		return PostResult{}, ctx.Err()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	res, err := r.Post(ctx, "msg", model.SubmissionTypeMessage, PostData{})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if res.Status != PostFailed || !strings.Contains(res.Message, "timed out") {
		t.Fatalf("expected timed out failure, got %+v", res)
	}

	res, _ = r.Post(ctx, "msg", model.SubmissionTypeMessage, PostData{})
	if res.Status != PostFailed {
		t.Fatalf("expired deadline before the call should fail, got %+v", res)
	}
}

func TestPost_SuccessKeptWhenCancelledAfter(t *testing.T) {
	r := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	_ = r.Register("msg", "Msg", messageCap(func(context.Context, PostData) (PostResult, error) {
		cancel()
		return PostResult{Status: PostSuccess, SourceURL: "https://example.test/1"}, nil
	}))

	res, err := r.Post(ctx, "msg", model.SubmissionTypeMessage, PostData{})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if res.Status != PostSuccess || res.SourceURL == "" {
		t.Fatalf("expected the returned success to stand, got %+v", res)
	}
}

func TestPost_ErrorBecomesFailed(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("msg", "Msg", messageCap(func(context.Context, PostData) (PostResult, error) {
		return PostResult{}, errors.New("500 from upstream")
	}))

	res, err := r.Post(context.Background(), "msg", model.SubmissionTypeMessage, PostData{})
	if err != nil || res.Status != PostFailed || res.Message == "" {
		t.Fatalf("expected structured failure, got %+v err=%v", res, err)
	}
}

func TestDestinations_Sorted(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("zeta", "Z", messageCap(nil))
	_ = r.Register("alpha", "A", messageCap(nil))
	d := r.Destinations()
	if len(d) != 2 || d[0].Name != "alpha" || d[1].Kinds[0] != model.SubmissionTypeMessage {
		t.Fatalf("unexpected destinations: %+v", d)
	}
}

func TestResolveFields(t *testing.T) {
	fm := BaseModel()
	def := model.FieldData{
		FieldTitle:       "default title",
		FieldDescription: map[string]any{"overrideDefault": false, "description": "default body"},
	}
	opt := model.FieldData{
		FieldTitle:       "",
		FieldDescription: map[string]any{"overrideDefault": false, "description": "ignored"},
		FieldRating:      "adult",
	}
	got := ResolveFields(fm, def, opt)
	if got[FieldTitle] != "default title" {
		t.Fatalf("empty option title should fall back, got %v", got[FieldTitle])
	}
	if DescriptionText(got) != "default body" {
		t.Fatalf("non-overriding description should use default, got %v", DescriptionText(got))
	}
	if got[FieldRating] != "adult" {
		t.Fatalf("option rating should win, got %v", got[FieldRating])
	}

	opt[FieldTitle] = "mine"
	opt[FieldDescription] = map[string]any{"overrideDefault": true, "description": "own"}
	got = ResolveFields(fm, def, opt)
	if got[FieldTitle] != "mine" || DescriptionText(got) != "own" {
		t.Fatalf("option values should win: %v", got)
	}
	if len(Tags(got)) != 0 {
		t.Fatalf("tags should come from model default")
	}
}
