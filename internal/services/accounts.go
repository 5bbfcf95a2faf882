package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/store"
	"github.com/mycelian/postybirb/internal/websites"
)

type CreateAccountRequest struct {
	Name    string   `json:"name"`
	Website string   `json:"website"`
	Groups  []string `json:"groups"`
}

type UpdateAccountRequest struct {
	Name   *string  `json:"name,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

type AccountService struct {
	store    store.Store
	registry *websites.Registry
	log      zerolog.Logger
}

func NewAccountService(s store.Store, r *websites.Registry, log zerolog.Logger) *AccountService {
	return &AccountService{store: s, registry: r, log: log.With().Str("component", "accounts").Logger()}
}

func (s *AccountService) Create(ctx context.Context, req CreateAccountRequest) (*model.Account, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, model.BadRequest("account name is required")
	}
	if !s.registry.Has(req.Website) {
		return nil, model.BadRequest("unknown website %q", req.Website)
	}
	a := &model.Account{Name: strings.TrimSpace(req.Name), Website: req.Website, Groups: req.Groups, Data: map[string]any{}}
	if a.Groups == nil {
		a.Groups = []string{}
	}
	if err := s.store.Accounts().Create(ctx, a); err != nil {
		return nil, wrapPersistence(err, "create account")
	}
	s.log.Info().Str("account_id", a.ID).Str("website", a.Website).Msg("account created")
	return a, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*model.Account, error) {
	return s.store.Accounts().Get(ctx, id)
}

func (s *AccountService) List(ctx context.Context) ([]*model.Account, error) {
	return s.store.Accounts().List(ctx)
}

func (s *AccountService) Update(ctx context.Context, id string, req UpdateAccountRequest) (*model.Account, error) {
	a, err := s.store.Accounts().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, model.BadRequest("account name cannot be blank")
		}
		a.Name = name
	}
	if req.Groups != nil {
		a.Groups = req.Groups
	}
	if err := s.store.Accounts().Update(ctx, a); err != nil {
		return nil, wrapPersistence(err, "update account "+id)
	}
	return a, nil
}

// Remove deletes the account and every website option that points at it in one commit.
func (s *AccountService) Remove(ctx context.Context, id string) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := tx.Accounts().Get(ctx, id); err != nil {
			return err
		}
		opts, err := tx.WebsiteOptions().ListByAccount(ctx, id)
		if err != nil {
			return err
		}
		for _, o := range opts {
			if err := tx.WebsiteOptions().Delete(ctx, o.ID); err != nil {
				return err
			}
		}
		s.log.Info().Str("account_id", id).Int("options_removed", len(opts)).Msg("removing account")
		return tx.Accounts().Delete(ctx, id)
	})
}

// ClearData drops everything the account stored about its login.
func (s *AccountService) ClearData(ctx context.Context, id string) (*model.Account, error) {
	a, err := s.store.Accounts().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Data = map[string]any{}
	if err := s.store.Accounts().Update(ctx, a); err != nil {
		return nil, wrapPersistence(err, "clear account "+id)
	}
	return a, nil
}
