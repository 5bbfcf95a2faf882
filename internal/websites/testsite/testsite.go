// Package testsite registers the "test" destination. It accepts every kind and
// records posts in memory, which makes it the reference implementation for the capability contract.
package testsite

import (
	"context"
	"fmt"
	"sync"

	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/websites"
)

const Name = "test"

// Site keeps every accepted post.
type Site struct {
	mu    sync.Mutex
	posts []websites.PostData
}

func New() *Site { return &Site{} }

// Register adds the destination with MESSAGE and FILE capabilities.
func (s *Site) Register(r *websites.Registry) error {
	return r.Register(Name, "Test",
		websites.Capability{
			Kind:         model.SubmissionTypeMessage,
			DefaultModel: messageModel,
			Validate:     s.validateMessage,
			Post:         s.post,
		},
		websites.Capability{
			Kind:         model.SubmissionTypeFile,
			DefaultModel: fileModel,
			Validate:     s.validateFile,
			Post:         s.post,
		},
	)
}

func messageModel() model.FieldData { return websites.BaseModel() }

func fileModel() model.FieldData {
	m := websites.BaseModel()
	m["useThumbnail"] = true
	return m
}

func (s *Site) validateMessage(_ context.Context, d websites.PostData) (websites.ValidationResult, error) {
	var res websites.ValidationResult
	websites.RequireTitle(&res, d.Fields)
	websites.MaxLength(&res, d.Fields, websites.FieldTitle, 64)
	return res, nil
}

func (s *Site) validateFile(ctx context.Context, d websites.PostData) (websites.ValidationResult, error) {
	res, _ := s.validateMessage(ctx, d)
	if d.Submission == nil || len(d.Submission.Files) == 0 {
		res.Errors = append(res.Errors, websites.ValidationMessage{Message: "at least one file is required"})
	}
	return res, nil
}

func (s *Site) post(ctx context.Context, d websites.PostData) (websites.PostResult, error) {
	if err := ctx.Err(); err != nil {
		return websites.PostResult{}, err
	}
	s.mu.Lock()
	s.posts = append(s.posts, d)
	n := len(s.posts)
	s.mu.Unlock()

	id := ""
	if d.Submission != nil {
		id = d.Submission.ID
	}
	return websites.PostResult{
		Status:    websites.PostSuccess,
		SourceURL: fmt.Sprintf("test://posts/%d/%s", n, id),
	}, nil
}

// Posts returns a copy of what was posted so far.
func (s *Site) Posts() []websites.PostData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]websites.PostData(nil), s.posts...)
}
