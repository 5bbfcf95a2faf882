package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/store"
)

// FileSubmissionService manages the files attached to FILE submissions.
type FileSubmissionService struct {
	store       store.Store
	submissions *SubmissionService
	log         zerolog.Logger
}

func NewFileSubmissionService(s store.Store, submissions *SubmissionService, log zerolog.Logger) *FileSubmissionService {
	return &FileSubmissionService{
		store:       s,
		submissions: submissions,
		log:         log.With().Str("component", "file_submissions").Logger(),
	}
}

func (s *FileSubmissionService) loadFileSubmission(ctx context.Context, id string) (*model.Submission, error) {
	sub, err := s.store.Submissions().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Type != model.SubmissionTypeFile {
		return nil, model.BadRequest("submission %s is not a FILE submission", id)
	}
	return sub, nil
}

// AppendFile stores the upload and adds it at the end of the submission's order.
func (s *FileSubmissionService) AppendFile(ctx context.Context, submissionID string, upload *FileUpload) (*model.Submission, error) {
	if upload == nil {
		return nil, model.BadRequest("no file provided")
	}
	sub, err := s.loadFileSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	f, err := s.submissions.storeFile(sub.ID, upload)
	if err != nil {
		return nil, err
	}

	unlock := s.submissions.lock(submissionID)
	defer unlock()
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		cur, err := tx.Submissions().Get(ctx, submissionID)
		if err != nil {
			return err
		}
		addFileMetadata(cur, f.ID)
		if err := tx.Files().Create(ctx, f); err != nil {
			return err
		}
		return tx.Submissions().Update(ctx, cur)
	})
	if err != nil {
		return nil, wrapPersistence(err, "append file to "+submissionID)
	}
	s.log.Info().Str("submission_id", submissionID).Str("file_id", f.ID).Str("origin", upload.Origin).Msg("file appended")
	return s.store.Submissions().Get(ctx, submissionID)
}

// RemoveFile detaches a file and drops it from the submission metadata.
func (s *FileSubmissionService) RemoveFile(ctx context.Context, submissionID, fileID string) (*model.Submission, error) {
	sub, err := s.loadFileSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.FileByID(fileID) == nil {
		return nil, model.NotFound("file %s on submission %s", fileID, submissionID)
	}

	unlock := s.submissions.lock(submissionID)
	defer unlock()
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		cur, err := tx.Submissions().Get(ctx, submissionID)
		if err != nil {
			return err
		}
		removeFileMetadata(cur, fileID)
		if err := tx.Files().Delete(ctx, fileID); err != nil {
			return err
		}
		return tx.Submissions().Update(ctx, cur)
	})
	if err != nil {
		return nil, wrapPersistence(err, "remove file "+fileID)
	}
	return s.store.Submissions().Get(ctx, submissionID)
}

// SetAltFile replaces the alternate file of one attachment.
func (s *FileSubmissionService) SetAltFile(ctx context.Context, submissionID, fileID string, upload *FileUpload) (*model.SubmissionFile, error) {
	if upload == nil {
		return nil, model.BadRequest("no file provided")
	}
	sub, err := s.loadFileSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	f := sub.FileByID(fileID)
	if f == nil {
		return nil, model.NotFound("file %s on submission %s", fileID, submissionID)
	}
	stored, err := s.submissions.storeFile(sub.ID, upload)
	if err != nil {
		return nil, err
	}
	alt := *stored.File
	alt.ID = uuid.New().String()
	alt.ParentID = f.ID
	f.AltFile = &alt

	if err := s.store.Files().Update(ctx, f); err != nil {
		return nil, wrapPersistence(err, "set alt file on "+fileID)
	}
	return f, nil
}

// orderIDs reads metadata.order as written by the service or decoded from JSON.
func orderIDs(meta map[string]any) []string {
	switch t := meta[model.MetadataOrder].(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func fileMetadata(meta map[string]any) map[string]any {
	if m, ok := meta[model.MetadataFileMetadata].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func addFileMetadata(sub *model.Submission, fileID string) {
	if sub.Metadata == nil {
		sub.Metadata = map[string]any{}
	}
	order := orderIDs(sub.Metadata)
	list := make([]any, 0, len(order)+1)
	for _, id := range order {
		list = append(list, id)
	}
	sub.Metadata[model.MetadataOrder] = append(list, fileID)

	fm := fileMetadata(sub.Metadata)
	fm[fileID] = map[string]any{"altText": "", "ignoredWebsites": []any{}}
	sub.Metadata[model.MetadataFileMetadata] = fm
}

func removeFileMetadata(sub *model.Submission, fileID string) {
	if sub.Metadata == nil {
		return
	}
	list := []any{}
	for _, id := range orderIDs(sub.Metadata) {
		if id != fileID {
			list = append(list, id)
		}
	}
	sub.Metadata[model.MetadataOrder] = list
	fm := fileMetadata(sub.Metadata)
	delete(fm, fileID)
	sub.Metadata[model.MetadataFileMetadata] = fm
}
