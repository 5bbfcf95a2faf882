package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mycelian/postybirb/internal/events"
	"github.com/mycelian/postybirb/internal/model"
)

type watchers struct{ s *Store }

const watcherColumns = `id, path, import_action, submission_ids, created_at, updated_at`

func scanWatcher(row rowScanner) (*model.DirectoryWatcher, error) {
	var (
		w                    model.DirectoryWatcher
		action, ids          string
		createdAt, updatedAt string
	)
	if err := row.Scan(&w.ID, &w.Path, &action, &ids, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	w.ImportAction = model.ImportAction(action)
	if err := fromJSON(ids, &w.SubmissionIDs); err != nil {
		return nil, err
	}
	if w.SubmissionIDs == nil {
		w.SubmissionIDs = []string{}
	}
	w.CreatedAt = parseTime(createdAt)
	w.UpdatedAt = parseTime(updatedAt)
	return &w, nil
}

func (r *watchers) Create(ctx context.Context, w *model.DirectoryWatcher) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now
	if w.SubmissionIDs == nil {
		w.SubmissionIDs = []string{}
	}
	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		ids, err := toJSON(w.SubmissionIDs)
		if err != nil {
			return nil, err
		}
		if _, err := c.exec(ctx, `INSERT INTO directory_watchers (`+watcherColumns+`) VALUES (?,?,?,?,?,?)`,
			w.ID, w.Path, string(w.ImportAction), ids, formatTime(w.CreatedAt), formatTime(w.UpdatedAt)); err != nil {
			return nil, classify(err, "insert directory watcher "+w.ID)
		}
		return []events.Change{change(events.ChangeCreate, w)}, nil
	})
}

func (r *watchers) Get(ctx context.Context, id string) (*model.DirectoryWatcher, error) {
	w, err := scanWatcher(r.s.conn().queryRow(ctx, `SELECT `+watcherColumns+` FROM directory_watchers WHERE id=?`, id))
	if err != nil {
		return nil, classify(err, "directory watcher "+id)
	}
	return w, nil
}

func (r *watchers) List(ctx context.Context) ([]*model.DirectoryWatcher, error) {
	rows, err := r.s.conn().query(ctx, `SELECT `+watcherColumns+` FROM directory_watchers ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list directory watchers")
	}
	defer func() { _ = rows.Close() }()
	out := []*model.DirectoryWatcher{}
	for rows.Next() {
		w, err := scanWatcher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, errors.Wrap(rows.Err(), "list directory watchers")
}

func (r *watchers) Update(ctx context.Context, w *model.DirectoryWatcher) error {
	w.UpdatedAt = time.Now().UTC()
	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		ids, err := toJSON(w.SubmissionIDs)
		if err != nil {
			return nil, err
		}
		res, err := c.exec(ctx, `UPDATE directory_watchers SET path=?, import_action=?, submission_ids=?, updated_at=? WHERE id=?`,
			w.Path, string(w.ImportAction), ids, formatTime(w.UpdatedAt), w.ID)
		if err != nil {
			return nil, classify(err, "update directory watcher "+w.ID)
		}
		if err := requireAffected(res, "directory watcher "+w.ID); err != nil {
			return nil, err
		}
		return []events.Change{change(events.ChangeUpdate, w)}, nil
	})
}

func (r *watchers) Delete(ctx context.Context, id string) error {
	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		w, err := scanWatcher(c.queryRow(ctx, `SELECT `+watcherColumns+` FROM directory_watchers WHERE id=?`, id))
		if err != nil {
			return nil, classify(err, "directory watcher "+id)
		}
		if _, err := c.exec(ctx, `DELETE FROM directory_watchers WHERE id=?`, id); err != nil {
			return nil, classify(err, "delete directory watcher "+id)
		}
		return []events.Change{change(events.ChangeDelete, w)}, nil
	})
}
