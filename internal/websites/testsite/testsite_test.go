package testsite

import (
	"context"
	"testing"

	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/websites"
)

func TestTestSite_ValidatesAndPosts(t *testing.T) {
	r := websites.NewRegistry()
	site := New()
	if err := site.Register(r); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !r.Supports(Name, model.SubmissionTypeMessage) || !r.Supports(Name, model.SubmissionTypeFile) {
		t.Fatalf("test site should support both kinds")
	}

	sub := &model.Submission{ID: "s1", Type: model.SubmissionTypeFile}
	res, err := r.Validate(context.Background(), Name, model.SubmissionTypeFile, websites.PostData{
		Submission: sub,
		Fields:     model.FieldData{websites.FieldTitle: "hi"},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.OK() {
		t.Fatalf("file submission without files must fail validation")
	}

	out, err := r.Post(context.Background(), Name, model.SubmissionTypeMessage, websites.PostData{Submission: sub})
	if err != nil || out.Status != websites.PostSuccess {
		t.Fatalf("post: %+v err=%v", out, err)
	}
	if len(site.Posts()) != 1 {
		t.Fatalf("post not recorded")
	}
}
