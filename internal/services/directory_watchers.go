package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/store"
)

type CreateDirectoryWatcherRequest struct {
	Path          string             `json:"path"`
	ImportAction  model.ImportAction `json:"importAction"`
	SubmissionIDs []string           `json:"submissionIds"`
}

type UpdateDirectoryWatcherRequest struct {
	Path          *string             `json:"path,omitempty"`
	ImportAction  *model.ImportAction `json:"importAction,omitempty"`
	SubmissionIDs []string            `json:"submissionIds,omitempty"`
}

type DirectoryWatcherService struct {
	store store.Store
	log   zerolog.Logger
}

func NewDirectoryWatcherService(s store.Store, log zerolog.Logger) *DirectoryWatcherService {
	return &DirectoryWatcherService{store: s, log: log.With().Str("component", "directory_watchers").Logger()}
}

func (s *DirectoryWatcherService) List(ctx context.Context) ([]*model.DirectoryWatcher, error) {
	return s.store.DirectoryWatchers().List(ctx)
}

func (s *DirectoryWatcherService) Get(ctx context.Context, id string) (*model.DirectoryWatcher, error) {
	return s.store.DirectoryWatchers().Get(ctx, id)
}

// Create stores a watcher. An empty path is allowed and keeps the watcher idle.
func (s *DirectoryWatcherService) Create(ctx context.Context, req CreateDirectoryWatcherRequest) (*model.DirectoryWatcher, error) {
	w := &model.DirectoryWatcher{
		Path:          strings.TrimSpace(req.Path),
		ImportAction:  req.ImportAction,
		SubmissionIDs: req.SubmissionIDs,
	}
	if w.ImportAction == "" {
		w.ImportAction = model.ImportActionNewSubmission
	}
	if err := s.check(ctx, w); err != nil {
		return nil, err
	}
	if err := s.store.DirectoryWatchers().Create(ctx, w); err != nil {
		return nil, wrapPersistence(err, "create directory watcher")
	}
	s.log.Info().Str("watcher_id", w.ID).Str("path", w.Path).Str("action", string(w.ImportAction)).Msg("directory watcher created")
	return w, nil
}

func (s *DirectoryWatcherService) Update(ctx context.Context, id string, req UpdateDirectoryWatcherRequest) (*model.DirectoryWatcher, error) {
	w, err := s.store.DirectoryWatchers().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Path != nil {
		w.Path = strings.TrimSpace(*req.Path)
	}
	if req.ImportAction != nil {
		w.ImportAction = *req.ImportAction
	}
	if req.SubmissionIDs != nil {
		w.SubmissionIDs = req.SubmissionIDs
	}
	if err := s.check(ctx, w); err != nil {
		return nil, err
	}
	if err := s.store.DirectoryWatchers().Update(ctx, w); err != nil {
		return nil, wrapPersistence(err, "update directory watcher "+id)
	}
	return w, nil
}

func (s *DirectoryWatcherService) Remove(ctx context.Context, id string) error {
	return s.store.DirectoryWatchers().Delete(ctx, id)
}

// check rejects unknown actions and ADD_TO_SUBMISSION targets that are missing or not FILE submissions.
func (s *DirectoryWatcherService) check(ctx context.Context, w *model.DirectoryWatcher) error {
	if !w.ImportAction.Valid() {
		return model.BadRequest("unknown import action %q", w.ImportAction)
	}
	if w.ImportAction != model.ImportActionAddToSubmission {
		return nil
	}
	for _, id := range w.SubmissionIDs {
		sub, err := s.store.Submissions().Get(ctx, id)
		if err != nil {
			if model.IsNotFound(err) {
				return model.BadRequest("target submission %s does not exist", id)
			}
			return err
		}
		if sub.Type != model.SubmissionTypeFile {
			return model.BadRequest("target submission %s is not a FILE submission", id)
		}
	}
	return nil
}
