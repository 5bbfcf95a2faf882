package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/postybirb/internal/events"
	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/store"
)

// Recorder is an events.Publisher that keeps every published batch.
type Recorder struct {
	mu      sync.Mutex
	batches [][]events.Change
}

func (r *Recorder) Publish(_ context.Context, changes []events.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]events.Change(nil), changes...))
}

// Batches returns a copy of the published batches.
func (r *Recorder) Batches() [][]events.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]events.Change(nil), r.batches...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.batches = nil
	r.mu.Unlock()
}

// MakeStore returns an isolated store publishing to pub.
type MakeStore func(t *testing.T, pub events.Publisher) store.Store

// Run exercises the compliance suite against a store.Store implementation.
func Run(t *testing.T, makeStore MakeStore) {
	t.Helper()

	t.Run("SubmissionAggregate", func(t *testing.T) { testSubmissionAggregate(t, makeStore) })
	t.Run("SubmissionUpdateFlush", func(t *testing.T) { testSubmissionUpdate(t, makeStore) })
	t.Run("SubmissionDeleteCascades", func(t *testing.T) { testSubmissionDelete(t, makeStore) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, makeStore) })
	t.Run("WithTxSingleCommit", func(t *testing.T) { testWithTxSingleCommit(t, makeStore) })
	t.Run("WithTxRollback", func(t *testing.T) { testWithTxRollback(t, makeStore) })
	t.Run("Accounts", func(t *testing.T) { testAccounts(t, makeStore) })
	t.Run("DirectoryWatchers", func(t *testing.T) { testWatchers(t, makeStore) })
	t.Run("Settings", func(t *testing.T) { testSettings(t, makeStore) })
}

func newAggregate() *model.Submission {
	return &model.Submission{
		Type:     model.SubmissionTypeFile,
		Schedule: model.Schedule{ScheduleType: model.ScheduleTypeNone},
		Metadata: map[string]any{model.MetadataOrder: []any{}},
		Options: []*model.WebsiteOption{{
			AccountID: model.NullAccountID,
			IsDefault: true,
			Data:      model.FieldData{"title": "hello"},
		}},
		Files: []*model.SubmissionFile{{
			FileName: "a.png",
			MimeType: "image/png",
			Hash:     "abc",
			Size:     3,
			File:     &model.FileBlob{ID: "blob-1", Path: "/tmp/a.png", MimeType: "image/png", Size: 3},
		}},
	}
}

func testSubmissionAggregate(t *testing.T, makeStore MakeStore) {
	rec := &Recorder{}
	s := makeStore(t, rec)
	ctx := context.Background()

	sub := newAggregate()
	require.NoError(t, s.Submissions().Create(ctx, sub))
	require.NotEmpty(t, sub.ID)

	batches := rec.Batches()
	require.Len(t, batches, 1, "aggregate create must be one commit")
	require.Len(t, batches[0], 3)
	assert.Equal(t, model.KindSubmission, batches[0][0].Entity.EntityKind())

	got, err := s.Submissions().Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionTypeFile, got.Type)
	require.Len(t, got.Options, 1)
	assert.True(t, got.Options[0].IsDefault)
	assert.Equal(t, model.NullAccountID, got.Options[0].AccountID)
	assert.Equal(t, "hello", got.Options[0].Data["title"])
	require.Len(t, got.Files, 1)
	require.NotNil(t, got.Files[0].File)
	assert.Equal(t, "blob-1", got.Files[0].File.ID)
	assert.Nil(t, got.Files[0].AltFile)
	assert.Equal(t, sub.ID, got.Files[0].SubmissionID)

	all, err := s.Submissions().List(ctx)
	require.NoError(t, err)
	var found *model.Submission
	for _, x := range all {
		if x.ID == sub.ID {
			found = x
		}
	}
	require.NotNil(t, found)
	assert.Len(t, found.Options, 1)
	assert.Len(t, found.Files, 1)
}

func testSubmissionUpdate(t *testing.T, makeStore MakeStore) {
	rec := &Recorder{}
	s := makeStore(t, rec)
	ctx := context.Background()

	sub := newAggregate()
	require.NoError(t, s.Submissions().Create(ctx, sub))
	rec.Reset()

	sub.IsScheduled = true
	sub.Schedule = model.Schedule{ScheduleType: model.ScheduleTypeSingle, ScheduledFor: "2030-01-01T00:00:00Z"}
	sub.Metadata["note"] = "x"
	require.NoError(t, s.Submissions().Update(ctx, sub))

	got, err := s.Submissions().Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, got.IsScheduled)
	assert.Equal(t, model.ScheduleTypeSingle, got.Schedule.ScheduleType)
	assert.Equal(t, "x", got.Metadata["note"])

	batches := rec.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, events.ChangeUpdate, batches[0][0].Kind)

	opt := got.Options[0]
	opt.Data["title"] = "changed"
	require.NoError(t, s.WebsiteOptions().Update(ctx, opt))
	o2, err := s.WebsiteOptions().Get(ctx, opt.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", o2.Data["title"])

	f := got.Files[0]
	f.AltFile = &model.FileBlob{ID: "alt-1", ParentID: f.ID, Path: "/tmp/a.txt", MimeType: "text/plain"}
	require.NoError(t, s.Files().Update(ctx, f))
	f2, err := s.Files().Get(ctx, f.ID)
	require.NoError(t, err)
	require.NotNil(t, f2.AltFile)
	assert.Equal(t, "alt-1", f2.AltFile.ID)
}

func testSubmissionDelete(t *testing.T, makeStore MakeStore) {
	rec := &Recorder{}
	s := makeStore(t, rec)
	ctx := context.Background()

	sub := newAggregate()
	require.NoError(t, s.Submissions().Create(ctx, sub))
	rec.Reset()

	require.NoError(t, s.Submissions().Delete(ctx, sub.ID))

	_, err := s.Submissions().Get(ctx, sub.ID)
	assert.True(t, model.IsNotFound(err), "got %v", err)
	opts, err := s.WebsiteOptions().ListBySubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, opts)
	files, err := s.Files().ListBySubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, files)

	batches := rec.Batches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 3)
	for _, c := range batches[0] {
		assert.Equal(t, events.ChangeDelete, c.Kind)
	}
}

func testNotFound(t *testing.T, makeStore MakeStore) {
	rec := &Recorder{}
	s := makeStore(t, rec)
	ctx := context.Background()

	_, err := s.Submissions().Get(ctx, "missing")
	assert.True(t, model.IsNotFound(err), "get: %v", err)
	err = s.Submissions().Update(ctx, &model.Submission{ID: "missing", Metadata: map[string]any{}})
	assert.True(t, model.IsNotFound(err), "update: %v", err)
	err = s.Submissions().Delete(ctx, "missing")
	assert.True(t, model.IsNotFound(err), "delete: %v", err)
	_, err = s.Accounts().Get(ctx, "missing")
	assert.True(t, model.IsNotFound(err), "account: %v", err)
	assert.Empty(t, rec.Batches(), "failed mutations must not publish")
}

func testWithTxSingleCommit(t *testing.T, makeStore MakeStore) {
	rec := &Recorder{}
	s := makeStore(t, rec)
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.Accounts().Create(ctx, &model.Account{Name: "one", Website: "test"}); err != nil {
			return err
		}
		return tx.Accounts().Create(ctx, &model.Account{Name: "two", Website: "test"})
	})
	require.NoError(t, err)

	batches := rec.Batches()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 2)
}

func testWithTxRollback(t *testing.T, makeStore MakeStore) {
	rec := &Recorder{}
	s := makeStore(t, rec)
	ctx := context.Background()

	acct := &model.Account{Name: "rolled-back", Website: "test"}
	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.Accounts().Create(ctx, acct); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Accounts().Get(ctx, acct.ID)
	assert.True(t, model.IsNotFound(err))
	assert.Empty(t, rec.Batches())
}

func testAccounts(t *testing.T, makeStore MakeStore) {
	s := makeStore(t, &Recorder{})
	ctx := context.Background()

	a := &model.Account{Name: "main", Website: "test", Groups: []string{"g1"}, Data: map[string]any{"token": "t"}}
	require.NoError(t, s.Accounts().Create(ctx, a))

	a.Name = "renamed"
	a.Data = map[string]any{}
	require.NoError(t, s.Accounts().Update(ctx, a))
	got, err := s.Accounts().Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, []string{"g1"}, got.Groups)
	assert.Empty(t, got.Data)

	sub := newAggregate()
	sub.Options = append(sub.Options, &model.WebsiteOption{AccountID: a.ID, Data: model.FieldData{}})
	require.NoError(t, s.Submissions().Create(ctx, sub))
	byAcct, err := s.WebsiteOptions().ListByAccount(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, byAcct, 1)
	assert.False(t, byAcct[0].IsDefault)

	require.NoError(t, s.Accounts().Delete(ctx, a.ID))
	list, err := s.Accounts().List(ctx)
	require.NoError(t, err)
	for _, x := range list {
		assert.NotEqual(t, a.ID, x.ID)
	}
}

func testWatchers(t *testing.T, makeStore MakeStore) {
	s := makeStore(t, &Recorder{})
	ctx := context.Background()

	w := &model.DirectoryWatcher{Path: "/in", ImportAction: model.ImportActionNewSubmission}
	require.NoError(t, s.DirectoryWatchers().Create(ctx, w))
	w.ImportAction = model.ImportActionAddToSubmission
	w.SubmissionIDs = []string{"s1", "s2"}
	require.NoError(t, s.DirectoryWatchers().Update(ctx, w))

	got, err := s.DirectoryWatchers().Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ImportActionAddToSubmission, got.ImportAction)
	assert.Equal(t, []string{"s1", "s2"}, got.SubmissionIDs)

	require.NoError(t, s.DirectoryWatchers().Delete(ctx, w.ID))
	_, err = s.DirectoryWatchers().Get(ctx, w.ID)
	assert.True(t, model.IsNotFound(err))
}

func testSettings(t *testing.T, makeStore MakeStore) {
	s := makeStore(t, &Recorder{})
	ctx := context.Background()

	profile := "profile-" + uuid.New().String()
	st := &model.Settings{Profile: profile}
	require.NoError(t, s.Settings().Create(ctx, st))
	got, err := s.Settings().GetByProfile(ctx, profile)
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)
	assert.NotNil(t, got.Settings.HiddenWebsites)

	got.Settings.HiddenWebsites = []string{"test"}
	require.NoError(t, s.Settings().Update(ctx, got))
	again, err := s.Settings().Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"test"}, again.Settings.HiddenWebsites)

	err = s.Settings().Create(ctx, &model.Settings{Profile: profile})
	assert.True(t, model.IsConflict(err), "duplicate profile: %v", err)
}
