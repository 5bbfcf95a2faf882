// Package websites holds the capability registry for posting destinations.
//
// A destination registers one Capability per submission kind it accepts. Callers
// ask Supports before any kind-specific call; asking anyway is a contract violation.
package websites

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/mycelian/postybirb/internal/model"
)

var (
	ErrUnknownDestination = stderrors.New("unknown destination")
	ErrUnsupported        = stderrors.New("destination does not support submission kind")
)

// PostData is what a capability sees for one option of one submission.
// Fields holds the resolved values (option, then default option, then model default).
type PostData struct {
	Submission *model.Submission
	Option     *model.WebsiteOption
	Account    *model.Account
	Fields     model.FieldData
}

type ValidationMessage struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type ValidationResult struct {
	Warnings []ValidationMessage `json:"warnings"`
	Errors   []ValidationMessage `json:"errors"`
}

// OK reports whether the result carries no errors. Warnings do not block posting.
func (v ValidationResult) OK() bool { return len(v.Errors) == 0 }

type PostStatus string

const (
	PostSuccess   PostStatus = "success"
	PostRejected  PostStatus = "rejected"
	PostFailed    PostStatus = "failed"
	PostCancelled PostStatus = "cancelled"
)

type PostResult struct {
	Status    PostStatus `json:"status"`
	SourceURL string     `json:"sourceUrl,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// Capability is the kind-tagged record a destination provides for one submission kind.
type Capability struct {
	Kind         model.SubmissionType
	DefaultModel func() model.FieldData
	Validate     func(ctx context.Context, data PostData) (ValidationResult, error)
	Post         func(ctx context.Context, data PostData) (PostResult, error)
}

// Destination describes a registered website.
type Destination struct {
	Name        string                 `json:"name"`
	DisplayName string                 `json:"displayName"`
	Kinds       []model.SubmissionType `json:"kinds"`
}

type site struct {
	name        string
	displayName string
	caps        map[model.SubmissionType]Capability
}

// Registry maps destination names to their capabilities. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	sites map[string]*site
}

func NewRegistry() *Registry {
	return &Registry{sites: make(map[string]*site)}
}

// Register adds a destination. A duplicate name, duplicate kind or incomplete capability is an error.
func (r *Registry) Register(name, displayName string, caps ...Capability) error {
	if name == "" {
		return fmt.Errorf("register: empty destination name")
	}
	if len(caps) == 0 {
		return fmt.Errorf("register %s: no capabilities", name)
	}
	s := &site{name: name, displayName: displayName, caps: make(map[model.SubmissionType]Capability, len(caps))}
	for _, c := range caps {
		if !c.Kind.Valid() {
			return fmt.Errorf("register %s: invalid kind %q", name, c.Kind)
		}
		if c.DefaultModel == nil || c.Validate == nil || c.Post == nil {
			return fmt.Errorf("register %s: capability %s is incomplete", name, c.Kind)
		}
		if _, dup := s.caps[c.Kind]; dup {
			return fmt.Errorf("register %s: duplicate capability %s", name, c.Kind)
		}
		s.caps[c.Kind] = c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.sites[name]; dup {
		return fmt.Errorf("register %s: already registered", name)
	}
	r.sites[name] = s
	return nil
}

// Has reports whether the destination is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sites[name]
	return ok
}

func (r *Registry) Supports(name string, kind model.SubmissionType) bool {
	_, err := r.capability(name, kind)
	return err == nil
}

// Kinds lists the submission kinds a destination accepts, MESSAGE before FILE.
func (r *Registry) Kinds(name string) []model.SubmissionType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sites[name]
	if !ok {
		return nil
	}
	return s.kinds()
}

func (s *site) kinds() []model.SubmissionType {
	out := make([]model.SubmissionType, 0, len(s.caps))
	for _, k := range []model.SubmissionType{model.SubmissionTypeMessage, model.SubmissionTypeFile} {
		if _, ok := s.caps[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Destinations lists every registered destination sorted by name.
func (r *Registry) Destinations() []Destination {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Destination, 0, len(r.sites))
	for _, s := range r.sites {
		out = append(out, Destination{Name: s.name, DisplayName: s.displayName, Kinds: s.kinds()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) capability(name string, kind model.SubmissionType) (Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sites[name]
	if !ok {
		return Capability{}, errors.Wrapf(ErrUnknownDestination, "%s", name)
	}
	c, ok := s.caps[kind]
	if !ok {
		return Capability{}, errors.Wrapf(ErrUnsupported, "%s/%s", name, kind)
	}
	return c, nil
}

// CreateDefaultModel returns a fresh default field model on every call.
func (r *Registry) CreateDefaultModel(name string, kind model.SubmissionType) (model.FieldData, error) {
	c, err := r.capability(name, kind)
	if err != nil {
		return nil, err
	}
	return copyFields(c.DefaultModel()), nil
}

// Validate reports data problems in the result. The error return is reserved for contract violations.
func (r *Registry) Validate(ctx context.Context, name string, kind model.SubmissionType, data PostData) (ValidationResult, error) {
	c, err := r.capability(name, kind)
	if err != nil {
		return ValidationResult{}, err
	}
	res, err := c.Validate(ctx, data)
	if err != nil {
		res.Errors = append(res.Errors, ValidationMessage{Message: err.Error()})
	}
	return res, nil
}

// Post invokes the destination. A success the destination already returned stands; otherwise
// a done context yields PostCancelled, or PostFailed when the deadline ran out.
func (r *Registry) Post(ctx context.Context, name string, kind model.SubmissionType, data PostData) (PostResult, error) {
	c, err := r.capability(name, kind)
	if err != nil {
		return PostResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return doneResult(err), nil
	}

	res, err := c.Post(ctx, data)
	if err == nil && res.Status == PostSuccess {
		return res, nil
	}
	if cerr := ctx.Err(); cerr != nil {
		return doneResult(cerr), nil
	}
	if err != nil {
		return PostResult{Status: PostFailed, Message: err.Error()}, nil
	}
	if res.Status == "" || res.Status == PostCancelled {
		res.Status = PostFailed
		if res.Message == "" {
			res.Message = "destination returned no status"
		}
	}
	return res, nil
}

func doneResult(err error) PostResult {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return PostResult{Status: PostFailed, Message: "timed out: " + err.Error()}
	}
	return PostResult{Status: PostCancelled, Message: err.Error()}
}

func copyFields(in model.FieldData) model.FieldData {
	out := make(model.FieldData, len(in))
	for k, v := range in {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = deepCopy(x)
		}
		return m
	case model.FieldData:
		return copyFields(t)
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = deepCopy(x)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
