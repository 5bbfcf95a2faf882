package services

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mycelian/postybirb/internal/filestore"
	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/store"
)

// DefaultSubmissionName titles a submission created without a name or file.
const DefaultSubmissionName = "New submission"

// FileUpload describes incoming bytes. Path is used when set, otherwise Reader.
type FileUpload struct {
	FileName string
	MimeType string
	Path     string
	Reader   io.Reader
	Size     int64
	Origin   string
}

func (u *FileUpload) mimeType() string {
	if u.MimeType != "" {
		return u.MimeType
	}
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(u.FileName))); t != "" {
		return t
	}
	return "application/octet-stream"
}

type CreateSubmissionRequest struct {
	Name    string               `json:"name"`
	Type    model.SubmissionType `json:"type"`
	Message string               `json:"message,omitempty"`
}

// OptionChange creates an option when ID is empty and updates its data otherwise.
type OptionChange struct {
	ID        string          `json:"id,omitempty"`
	AccountID string          `json:"accountId,omitempty"`
	Data      model.FieldData `json:"data"`
}

type UpdateSubmissionRequest struct {
	IsScheduled           *bool               `json:"isScheduled,omitempty"`
	ScheduleType          *model.ScheduleType `json:"scheduleType,omitempty"`
	ScheduledFor          *string             `json:"scheduledFor,omitempty"`
	Metadata              map[string]any      `json:"metadata,omitempty"`
	DeletedWebsiteOptions []string            `json:"deletedWebsiteOptions,omitempty"`
	NewOrUpdatedOptions   []OptionChange      `json:"newOrUpdatedOptions,omitempty"`
}

// ItemOutcome reports one entry of a batch operation.
type ItemOutcome struct {
	ID     string `json:"id,omitempty"`
	Action string `json:"action"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

type UpdateResult struct {
	Submission    *model.Submission `json:"submission"`
	OptionChanges []ItemOutcome     `json:"optionChanges"`
}

type SubmissionService struct {
	store   store.Store
	blobs   *filestore.Store
	options *WebsiteOptionService
	log     zerolog.Logger

	// locks serializes read-modify-write of one submission row (metadata order and fileMetadata).
	locks sync.Map // submission id -> *sync.Mutex
}

func NewSubmissionService(s store.Store, blobs *filestore.Store, options *WebsiteOptionService, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		store:   s,
		blobs:   blobs,
		options: options,
		log:     log.With().Str("component", "submissions").Logger(),
	}
}

func (s *SubmissionService) lock(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *SubmissionService) Get(ctx context.Context, id string) (*model.Submission, error) {
	return s.store.Submissions().Get(ctx, id)
}

func (s *SubmissionService) List(ctx context.Context) ([]*model.Submission, error) {
	return s.store.Submissions().List(ctx)
}

// Create builds a submission with its default option (and first file for FILE) and persists it in one commit.
func (s *SubmissionService) Create(ctx context.Context, req CreateSubmissionRequest, upload *FileUpload) (*model.Submission, error) {
	s.log.Info().Str("type", string(req.Type)).Str("name", req.Name).Msg("creating submission")

	sub := &model.Submission{
		ID:          uuid.New().String(),
		Type:        req.Type,
		IsScheduled: false,
		Schedule:    model.Schedule{ScheduleType: model.ScheduleTypeNone},
		Options:     []*model.WebsiteOption{},
		Files:       []*model.SubmissionFile{},
		Metadata:    map[string]any{},
	}

	switch req.Type {
	case model.SubmissionTypeMessage:
		if upload != nil {
			return nil, model.BadRequest("a file was provided for a MESSAGE submission")
		}
	case model.SubmissionTypeFile:
		if upload == nil {
			return nil, model.BadRequest("no file provided for a FILE submission")
		}
		f, err := s.storeFile(sub.ID, upload)
		if err != nil {
			return nil, err
		}
		sub.Files = append(sub.Files, f)
		addFileMetadata(sub, f.ID)
	default:
		return nil, model.BadRequest("unknown submission type %q", req.Type)
	}

	name := DefaultSubmissionName
	if req.Name != "" {
		name = req.Name
	} else if upload != nil && upload.FileName != "" {
		name = upload.FileName
	}
	sub.Options = append(sub.Options, s.options.NewDefault(sub, name, req.Message))

	if err := s.store.Submissions().Create(ctx, sub); err != nil {
		return nil, wrapPersistence(err, "create submission")
	}
	return sub, nil
}

// storeFile writes the upload into the blob store and returns the unsaved file record.
func (s *SubmissionService) storeFile(submissionID string, upload *FileUpload) (*model.SubmissionFile, error) {
	if upload.FileName == "" {
		return nil, model.BadRequest("file name is required")
	}
	var (
		st  filestore.Stored
		err error
	)
	switch {
	case upload.Path != "":
		st, err = s.blobs.ImportPath(upload.Path)
	case upload.Reader != nil:
		st, err = s.blobs.Write(upload.Reader)
	default:
		return nil, model.BadRequest("file %s has no content", upload.FileName)
	}
	if err != nil {
		return nil, model.BadRequest("store file %s: %v", upload.FileName, err)
	}

	mt := upload.mimeType()
	f := &model.SubmissionFile{
		ID:           uuid.New().String(),
		SubmissionID: submissionID,
		FileName:     upload.FileName,
		MimeType:     mt,
		Hash:         st.Hash,
		Size:         st.Size,
	}
	f.File = &model.FileBlob{ID: uuid.New().String(), ParentID: f.ID, Path: st.Path, MimeType: mt, Size: st.Size}
	s.log.Debug().Str("file", f.FileName).Str("origin", upload.Origin).Str("hash", st.Hash).Msg("file stored")
	return f, nil
}

// Update merges schedule and metadata, applies option changes concurrently and flushes the submission row.
func (s *SubmissionService) Update(ctx context.Context, id string, req UpdateSubmissionRequest) (*UpdateResult, error) {
	s.log.Info().Str("submission_id", id).Msg("updating submission")
	unlock := s.lock(id)
	defer unlock()
	sub, err := s.store.Submissions().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.IsScheduled != nil {
		sub.IsScheduled = *req.IsScheduled
	}
	if req.ScheduleType != nil {
		sub.Schedule.ScheduleType = *req.ScheduleType
	}
	if req.ScheduledFor != nil {
		sub.Schedule.ScheduledFor = *req.ScheduledFor
	}
	if err := validateSchedule(sub.Schedule); err != nil {
		return nil, err
	}
	if sub.Metadata == nil {
		sub.Metadata = map[string]any{}
	}
	for k, v := range req.Metadata {
		sub.Metadata[k] = v
	}

	outcomes := s.applyOptionChanges(ctx, sub.ID, req)

	if err := s.store.Submissions().Update(ctx, sub); err != nil {
		return nil, model.BadRequest("flush submission %s: %v", id, err)
	}
	reloaded, err := s.store.Submissions().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UpdateResult{Submission: reloaded, OptionChanges: outcomes}, nil
}

// applyOptionChanges runs every deletion, creation and update on its own goroutine and gathers
// all outcomes. One failure never stops the others.
func (s *SubmissionService) applyOptionChanges(ctx context.Context, submissionID string, req UpdateSubmissionRequest) []ItemOutcome {
	n := len(req.DeletedWebsiteOptions) + len(req.NewOrUpdatedOptions)
	outcomes := make([]ItemOutcome, n)
	var wg sync.WaitGroup

	run := func(i int, action, id string, fn func() (string, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := ItemOutcome{ID: id, Action: action, OK: true}
			newID, err := fn()
			if newID != "" {
				out.ID = newID
			}
			if err != nil {
				out.OK = false
				out.Error = err.Error()
				s.log.Warn().Err(err).Str("submission_id", submissionID).Str("action", action).Str("option_id", id).Msg("option change failed")
			}
			outcomes[i] = out
		}()
	}

	i := 0
	for _, optID := range req.DeletedWebsiteOptions {
		run(i, "delete", optID, func() (string, error) {
			return "", s.options.Remove(ctx, submissionID, optID)
		})
		i++
	}
	for _, ch := range req.NewOrUpdatedOptions {
		if ch.ID != "" {
			run(i, "update", ch.ID, func() (string, error) {
				_, err := s.options.Update(ctx, submissionID, ch.ID, ch.Data)
				return "", err
			})
		} else {
			run(i, "create", "", func() (string, error) {
				o, err := s.options.Create(ctx, CreateOptionRequest{SubmissionID: submissionID, AccountID: ch.AccountID, Data: ch.Data})
				if err != nil {
					return "", err
				}
				return o.ID, nil
			})
		}
		i++
	}
	wg.Wait()
	return outcomes
}

func validateSchedule(sc model.Schedule) error {
	if sc.ScheduleType == "" {
		return nil
	}
	if !sc.ScheduleType.Valid() {
		return model.BadRequest("unknown schedule type %q", sc.ScheduleType)
	}
	switch sc.ScheduleType {
	case model.ScheduleTypeSingle:
		if _, err := time.Parse(time.RFC3339, sc.ScheduledFor); err != nil {
			return model.BadRequest("scheduledFor must be an RFC3339 timestamp for SINGLE schedules")
		}
	case model.ScheduleTypeRecurring:
		if strings.TrimSpace(sc.ScheduledFor) == "" {
			return model.BadRequest("scheduledFor must hold an expression for RECURRING schedules")
		}
	}
	return nil
}

// Remove deletes the submission with its options and files.
func (s *SubmissionService) Remove(ctx context.Context, id string) error {
	s.log.Info().Str("submission_id", id).Msg("removing submission")
	return s.store.Submissions().Delete(ctx, id)
}

// Duplicate copies a submission under fresh ids. All ids are allocated first, then every
// reference (parents, metadata order and fileMetadata keys) is rewritten through the map.
func (s *SubmissionService) Duplicate(ctx context.Context, id string) (*model.Submission, error) {
	s.log.Info().Str("submission_id", id).Msg("duplicating submission")
	src, err := s.store.Submissions().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := map[string]string{src.ID: uuid.New().String()}
	for _, o := range src.Options {
		ids[o.ID] = uuid.New().String()
	}
	for _, f := range src.Files {
		ids[f.ID] = uuid.New().String()
		for _, b := range []*model.FileBlob{f.File, f.Thumbnail, f.AltFile} {
			if b != nil {
				ids[b.ID] = uuid.New().String()
			}
		}
	}

	dup := &model.Submission{
		ID:          ids[src.ID],
		Type:        src.Type,
		IsScheduled: src.IsScheduled,
		Schedule:    src.Schedule,
		Options:     make([]*model.WebsiteOption, 0, len(src.Options)),
		Files:       make([]*model.SubmissionFile, 0, len(src.Files)),
	}
	dup.Metadata, _ = remapIDs(src.Metadata, ids).(map[string]any)
	if dup.Metadata == nil {
		dup.Metadata = map[string]any{}
	}
	for _, o := range src.Options {
		data, _ := remapIDs(map[string]any(o.Data), ids).(map[string]any)
		dup.Options = append(dup.Options, &model.WebsiteOption{
			ID:           ids[o.ID],
			SubmissionID: dup.ID,
			AccountID:    o.AccountID,
			Data:         model.FieldData(data),
			IsDefault:    o.IsDefault,
		})
	}
	for _, f := range src.Files {
		nf := &model.SubmissionFile{
			ID:           ids[f.ID],
			SubmissionID: dup.ID,
			FileName:     f.FileName,
			MimeType:     f.MimeType,
			Hash:         f.Hash,
			Size:         f.Size,
		}
		nf.File = copyBlob(f.File, nf.ID, ids)
		nf.Thumbnail = copyBlob(f.Thumbnail, nf.ID, ids)
		nf.AltFile = copyBlob(f.AltFile, nf.ID, ids)
		dup.Files = append(dup.Files, nf)
	}

	if err := s.store.Submissions().Create(ctx, dup); err != nil {
		return nil, wrapPersistence(err, "duplicate submission "+id)
	}
	return dup, nil
}

func copyBlob(b *model.FileBlob, parentID string, ids map[string]string) *model.FileBlob {
	if b == nil {
		return nil
	}
	return &model.FileBlob{ID: ids[b.ID], ParentID: parentID, Path: b.Path, MimeType: b.MimeType, Size: b.Size}
}

// remapIDs deep-copies v, replacing map keys and string values found in ids.
func remapIDs(v any, ids map[string]string) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			if nk, ok := ids[k]; ok {
				k = nk
			}
			out[k] = remapIDs(x, ids)
		}
		return out
	case model.FieldData:
		return remapIDs(map[string]any(t), ids)
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = remapIDs(x, ids)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = remapIDs(x, ids)
		}
		return out
	case string:
		if n, ok := ids[t]; ok {
			return n
		}
		return t
	}
	return v
}

func wrapPersistence(err error, what string) error {
	if model.IsNotFound(err) || model.IsBadRequest(err) {
		return err
	}
	return model.BadRequest("%s: %v", what, err)
}
