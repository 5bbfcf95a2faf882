package store

import (
	"context"

	"github.com/mycelian/postybirb/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (sqlstore backs both sqlite and postgres).
//
// Every mutation outside WithTx is its own commit. Inside WithTx all mutations share one
// commit and their changes are published together after it succeeds.
type Store interface {
	Submissions() Submissions
	WebsiteOptions() WebsiteOptions
	Files() Files
	Accounts() Accounts
	DirectoryWatchers() DirectoryWatchers
	Settings() Settings

	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Submissions persists the aggregate root. Create writes options and files too;
// Update flushes only the submission row; Delete removes the whole aggregate.
type Submissions interface {
	Create(ctx context.Context, s *model.Submission) error
	Get(ctx context.Context, id string) (*model.Submission, error)
	List(ctx context.Context) ([]*model.Submission, error)
	Update(ctx context.Context, s *model.Submission) error
	Delete(ctx context.Context, id string) error
}

type WebsiteOptions interface {
	Create(ctx context.Context, o *model.WebsiteOption) error
	Get(ctx context.Context, id string) (*model.WebsiteOption, error)
	ListBySubmission(ctx context.Context, submissionID string) ([]*model.WebsiteOption, error)
	ListByAccount(ctx context.Context, accountID string) ([]*model.WebsiteOption, error)
	Update(ctx context.Context, o *model.WebsiteOption) error
	Delete(ctx context.Context, id string) error
}

type Files interface {
	Create(ctx context.Context, f *model.SubmissionFile) error
	Get(ctx context.Context, id string) (*model.SubmissionFile, error)
	ListBySubmission(ctx context.Context, submissionID string) ([]*model.SubmissionFile, error)
	Update(ctx context.Context, f *model.SubmissionFile) error
	Delete(ctx context.Context, id string) error
}

type Accounts interface {
	Create(ctx context.Context, a *model.Account) error
	Get(ctx context.Context, id string) (*model.Account, error)
	List(ctx context.Context) ([]*model.Account, error)
	Update(ctx context.Context, a *model.Account) error
	Delete(ctx context.Context, id string) error
}

type DirectoryWatchers interface {
	Create(ctx context.Context, w *model.DirectoryWatcher) error
	Get(ctx context.Context, id string) (*model.DirectoryWatcher, error)
	List(ctx context.Context) ([]*model.DirectoryWatcher, error)
	Update(ctx context.Context, w *model.DirectoryWatcher) error
	Delete(ctx context.Context, id string) error
}

type Settings interface {
	Create(ctx context.Context, s *model.Settings) error
	Get(ctx context.Context, id string) (*model.Settings, error)
	GetByProfile(ctx context.Context, profile string) (*model.Settings, error)
	List(ctx context.Context) ([]*model.Settings, error)
	Update(ctx context.Context, s *model.Settings) error
}
