package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/store"
	"github.com/mycelian/postybirb/internal/websites"
)

type CreateOptionRequest struct {
	SubmissionID string          `json:"submissionId"`
	AccountID    string          `json:"accountId"`
	Data         model.FieldData `json:"data"`
}

// OptionValidation is the registry verdict for one destination option.
type OptionValidation struct {
	OptionID  string                    `json:"optionId"`
	AccountID string                    `json:"accountId"`
	Website   string                    `json:"website,omitempty"`
	Result    websites.ValidationResult `json:"result"`
}

type WebsiteOptionService struct {
	store    store.Store
	registry *websites.Registry
	log      zerolog.Logger
}

func NewWebsiteOptionService(s store.Store, r *websites.Registry, log zerolog.Logger) *WebsiteOptionService {
	return &WebsiteOptionService{store: s, registry: r, log: log.With().Str("component", "website_options").Logger()}
}

// NewDefault builds the unsaved default option of sub titled name. A message body seeds the description.
func (s *WebsiteOptionService) NewDefault(sub *model.Submission, name, message string) *model.WebsiteOption {
	data := websites.BaseModel()
	data[websites.FieldTitle] = name
	if message != "" {
		data[websites.FieldDescription] = map[string]any{"overrideDefault": false, "description": message}
	}
	return &model.WebsiteOption{
		ID:           uuid.New().String(),
		SubmissionID: sub.ID,
		AccountID:    model.NullAccountID,
		Data:         data,
		IsDefault:    true,
	}
}

// Create adds a destination option. The account must exist, its website must accept the
// submission type and the submission may hold only one option per account.
func (s *WebsiteOptionService) Create(ctx context.Context, req CreateOptionRequest) (*model.WebsiteOption, error) {
	if req.AccountID == "" || req.AccountID == model.NullAccountID {
		return nil, model.BadRequest("an account is required")
	}
	sub, err := s.store.Submissions().Get(ctx, req.SubmissionID)
	if err != nil {
		return nil, err
	}
	acct, err := s.store.Accounts().Get(ctx, req.AccountID)
	if err != nil {
		if model.IsNotFound(err) {
			return nil, model.BadRequest("account %s does not exist", req.AccountID)
		}
		return nil, err
	}
	if !s.registry.Supports(acct.Website, sub.Type) {
		return nil, model.BadRequest("website %s does not support %s submissions", acct.Website, sub.Type)
	}
	for _, o := range sub.Options {
		if o.AccountID == req.AccountID {
			return nil, model.BadRequest("submission %s already has an option for account %s", sub.ID, req.AccountID)
		}
	}

	data := req.Data
	if data == nil {
		if data, err = s.registry.CreateDefaultModel(acct.Website, sub.Type); err != nil {
			return nil, err
		}
	}
	o := &model.WebsiteOption{SubmissionID: sub.ID, AccountID: acct.ID, Data: data}
	if err := s.store.WebsiteOptions().Create(ctx, o); err != nil {
		return nil, wrapPersistence(err, "create website option")
	}
	return o, nil
}

// owned loads option id and rejects it as missing when it belongs to another submission.
func (s *WebsiteOptionService) owned(ctx context.Context, submissionID, id string) (*model.WebsiteOption, error) {
	o, err := s.store.WebsiteOptions().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.SubmissionID != submissionID {
		return nil, model.NotFound("website option %s on submission %s", id, submissionID)
	}
	return o, nil
}

func (s *WebsiteOptionService) Update(ctx context.Context, submissionID, id string, data model.FieldData) (*model.WebsiteOption, error) {
	o, err := s.owned(ctx, submissionID, id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = model.FieldData{}
	}
	o.Data = data
	if err := s.store.WebsiteOptions().Update(ctx, o); err != nil {
		return nil, wrapPersistence(err, "update website option "+id)
	}
	return o, nil
}

// Remove deletes a destination option. The default option lives as long as its submission.
func (s *WebsiteOptionService) Remove(ctx context.Context, submissionID, id string) error {
	o, err := s.owned(ctx, submissionID, id)
	if err != nil {
		return err
	}
	if o.IsDefault {
		return model.BadRequest("the default option of a submission cannot be removed")
	}
	return s.store.WebsiteOptions().Delete(ctx, id)
}

// Validate checks every destination option of a submission against its website.
func (s *WebsiteOptionService) Validate(ctx context.Context, submissionID string) ([]OptionValidation, error) {
	sub, err := s.store.Submissions().Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	out := []OptionValidation{}
	for _, o := range sub.Options {
		if o.IsDefault {
			continue
		}
		v, _, err := s.validateOption(ctx, sub, o)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// validateOption resolves fields and asks the registry. Missing accounts and unsupported
// websites are reported in the result rather than as an error.
func (s *WebsiteOptionService) validateOption(ctx context.Context, sub *model.Submission, o *model.WebsiteOption) (OptionValidation, websites.PostData, error) {
	v := OptionValidation{OptionID: o.ID, AccountID: o.AccountID}
	acct, err := s.store.Accounts().Get(ctx, o.AccountID)
	if err != nil {
		if model.IsNotFound(err) {
			v.Result.Errors = append(v.Result.Errors, websites.ValidationMessage{Message: "account " + o.AccountID + " no longer exists"})
			return v, websites.PostData{}, nil
		}
		return v, websites.PostData{}, err
	}
	v.Website = acct.Website
	if !s.registry.Supports(acct.Website, sub.Type) {
		v.Result.Errors = append(v.Result.Errors, websites.ValidationMessage{Message: "website " + acct.Website + " does not support " + string(sub.Type)})
		return v, websites.PostData{}, nil
	}

	fieldModel, err := s.registry.CreateDefaultModel(acct.Website, sub.Type)
	if err != nil {
		return v, websites.PostData{}, err
	}
	var defaults model.FieldData
	if d := sub.DefaultOption(); d != nil {
		defaults = d.Data
	}
	data := websites.PostData{
		Submission: sub,
		Option:     o,
		Account:    acct,
		Fields:     websites.ResolveFields(fieldModel, defaults, o.Data),
	}
	res, err := s.registry.Validate(ctx, acct.Website, sub.Type, data)
	if err != nil {
		return v, data, err
	}
	v.Result = res
	return v, data, nil
}
