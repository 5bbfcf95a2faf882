// Package webhook posts MESSAGE submissions as JSON to a configured HTTP endpoint.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/websites"
)

const Name = "webhook"

const maxDescription = 4000

// Options configures the destination.
type Options struct {
	URL         string
	MaxRetries  int
	BaseBackoff time.Duration
	Timeout     time.Duration
}

type Site struct {
	client *resty.Client
	opts   Options
}

func New(opts Options) *Site {
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 200 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	c := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(opts.Timeout)
	return &Site{client: c, opts: opts}
}

func (s *Site) Register(r *websites.Registry) error {
	return r.Register(Name, "Webhook", websites.Capability{
		Kind:         model.SubmissionTypeMessage,
		DefaultModel: websites.BaseModel,
		Validate:     s.validate,
		Post:         s.post,
	})
}

type payload struct {
	SubmissionID string   `json:"submissionId"`
	Account      string   `json:"account,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	Rating       any      `json:"rating,omitempty"`
}

type response struct {
	URL string `json:"url"`
}

func (s *Site) validate(_ context.Context, d websites.PostData) (websites.ValidationResult, error) {
	var res websites.ValidationResult
	websites.RequireTitle(&res, d.Fields)
	if n := len([]rune(websites.DescriptionText(d.Fields))); n > maxDescription {
		res.Warnings = append(res.Warnings, websites.ValidationMessage{
			Field:   websites.FieldDescription,
			Message: fmt.Sprintf("description is %d characters and will be truncated to %d", n, maxDescription),
		})
	}
	return res, nil
}

func (s *Site) post(ctx context.Context, d websites.PostData) (websites.PostResult, error) {
	body := payload{
		Title:       websites.StringField(d.Fields, websites.FieldTitle),
		Description: truncate(websites.DescriptionText(d.Fields), maxDescription),
		Tags:        websites.Tags(d.Fields),
		Rating:      d.Fields[websites.FieldRating],
	}
	if d.Submission != nil {
		body.SubmissionID = d.Submission.ID
	}
	if d.Account != nil {
		body.Account = d.Account.Name
	}

	var last *resty.Response
	op := func() error {
		resp, err := s.client.R().SetContext(ctx).SetBody(&body).Post(s.opts.URL)
		if err != nil {
			return err
		}
		last = resp
		switch {
		case resp.StatusCode() >= 500:
			return fmt.Errorf("webhook status %d", resp.StatusCode())
		case resp.StatusCode() >= 400:
			return backoff.Permanent(fmt.Errorf("webhook status %d: %s", resp.StatusCode(), resp.String()))
		}
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.opts.BaseBackoff
	exp.Multiplier = 2
	exp.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(s.opts.MaxRetries)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		if last != nil && last.StatusCode() >= 400 && last.StatusCode() < 500 {
			return websites.PostResult{Status: websites.PostRejected, Message: err.Error()}, nil
		}
		return websites.PostResult{Status: websites.PostFailed, Message: err.Error()}, nil
	}

	out := websites.PostResult{Status: websites.PostSuccess, SourceURL: last.Header().Get("Location")}
	var r response
	if len(last.Body()) > 0 && json.Unmarshal(last.Body(), &r) == nil && r.URL != "" {
		out.SourceURL = r.URL
	}
	return out, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
