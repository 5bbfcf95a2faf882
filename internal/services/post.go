package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mycelian/postybirb/internal/metrics"
	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/store"
	"github.com/mycelian/postybirb/internal/websites"
)

// PostOutcome is the result of one destination option.
type PostOutcome struct {
	OptionID   string                     `json:"optionId"`
	AccountID  string                     `json:"accountId"`
	Website    string                     `json:"website,omitempty"`
	Validation *websites.ValidationResult `json:"validation,omitempty"`
	Result     websites.PostResult        `json:"result"`
}

type PostReport struct {
	SubmissionID string        `json:"submissionId"`
	Outcomes     []PostOutcome `json:"outcomes"`
}

// PostService sends a submission to all of its destination options. One post per submission
// runs at a time and Cancel stops it.
type PostService struct {
	store   store.Store
	options *WebsiteOptionService
	reg     *websites.Registry
	timeout time.Duration
	log     zerolog.Logger

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

func NewPostService(s store.Store, options *WebsiteOptionService, reg *websites.Registry, timeout time.Duration, log zerolog.Logger) *PostService {
	return &PostService{
		store:    s,
		options:  options,
		reg:      reg,
		timeout:  timeout,
		log:      log.With().Str("component", "post").Logger(),
		inflight: make(map[string]context.CancelFunc),
	}
}

// Post validates and posts every destination option concurrently. Options that fail validation
// are reported as rejected without calling the destination.
func (s *PostService) Post(ctx context.Context, submissionID string) (*PostReport, error) {
	// store reads ignore cancellation; only destination calls observe it
	sctx := context.WithoutCancel(ctx)
	sub, err := s.store.Submissions().Get(sctx, submissionID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	if s.timeout > 0 {
		ctx, cancel = withTimeout(ctx, cancel, s.timeout)
	}
	if !s.begin(submissionID, cancel) {
		cancel()
		return nil, model.BadRequest("submission %s is already posting", submissionID)
	}
	defer s.end(submissionID)

	var targets []*model.WebsiteOption
	for _, o := range sub.Options {
		if !o.IsDefault {
			targets = append(targets, o)
		}
	}
	report := &PostReport{SubmissionID: sub.ID, Outcomes: make([]PostOutcome, len(targets))}

	var wg sync.WaitGroup
	for i, o := range targets {
		wg.Add(1)
		go func(i int, o *model.WebsiteOption) {
			defer wg.Done()
			report.Outcomes[i] = s.postOption(ctx, sctx, sub, o)
		}(i, o)
	}
	wg.Wait()

	for _, out := range report.Outcomes {
		metrics.PostOutcomes.WithLabelValues(out.Website, string(out.Result.Status)).Inc()
	}
	s.log.Info().Str("submission_id", sub.ID).Int("destinations", len(targets)).Msg("post finished")
	return report, nil
}

func (s *PostService) postOption(ctx, sctx context.Context, sub *model.Submission, o *model.WebsiteOption) PostOutcome {
	out := PostOutcome{OptionID: o.ID, AccountID: o.AccountID}
	v, data, err := s.options.validateOption(sctx, sub, o)
	out.Website = v.Website
	if err != nil {
		out.Result = websites.PostResult{Status: websites.PostFailed, Message: err.Error()}
		return out
	}
	if !v.Result.OK() {
		res := v.Result
		out.Validation = &res
		out.Result = websites.PostResult{Status: websites.PostRejected, Message: res.Errors[0].Message}
		return out
	}

	res, err := s.reg.Post(ctx, v.Website, sub.Type, data)
	if err != nil {
		res = websites.PostResult{Status: websites.PostFailed, Message: err.Error()}
	}
	out.Result = res
	if res.Status != websites.PostSuccess {
		s.log.Warn().Str("submission_id", sub.ID).Str("website", v.Website).Str("status", string(res.Status)).Str("message", res.Message).Msg("post did not succeed")
	}
	return out
}

// Cancel stops the in-flight post of a submission. It reports whether one was running.
func (s *PostService) Cancel(submissionID string) bool {
	s.mu.Lock()
	cancel, ok := s.inflight[submissionID]
	s.mu.Unlock()
	if ok {
		s.log.Info().Str("submission_id", submissionID).Msg("cancelling post")
		cancel()
	}
	return ok
}

func (s *PostService) begin(id string, cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return false
	}
	s.inflight[id] = cancel
	return true
}

func (s *PostService) end(id string) {
	s.mu.Lock()
	cancel := s.inflight[id]
	delete(s.inflight, id)
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func withTimeout(parent context.Context, cancelParent context.CancelFunc, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		cancel()
		cancelParent()
	}
}
