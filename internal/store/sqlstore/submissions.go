package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mycelian/postybirb/internal/events"
	"github.com/mycelian/postybirb/internal/model"
)

type submissions struct{ s *Store }

const submissionColumns = `id, type, is_scheduled, schedule, metadata, created_at, updated_at`

func (r *submissions) Create(ctx context.Context, sub *model.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	if sub.Metadata == nil {
		sub.Metadata = map[string]any{}
	}

	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		schedule, err := toJSON(sub.Schedule)
		if err != nil {
			return nil, err
		}
		meta, err := toJSON(sub.Metadata)
		if err != nil {
			return nil, err
		}
		if _, err := c.exec(ctx, `INSERT INTO submissions (`+submissionColumns+`) VALUES (?,?,?,?,?,?,?)`,
			sub.ID, string(sub.Type), sub.IsScheduled, schedule, meta, formatTime(sub.CreatedAt), formatTime(sub.UpdatedAt)); err != nil {
			return nil, classify(err, "insert submission "+sub.ID)
		}
		out := []events.Change{change(events.ChangeCreate, sub)}

		for _, o := range sub.Options {
			o.SubmissionID = sub.ID
			if err := insertOption(ctx, c, o); err != nil {
				return nil, err
			}
			out = append(out, change(events.ChangeCreate, o))
		}
		for _, f := range sub.Files {
			f.SubmissionID = sub.ID
			if err := insertFile(ctx, c, f); err != nil {
				return nil, err
			}
			out = append(out, change(events.ChangeCreate, f))
		}
		return out, nil
	})
}

func (r *submissions) Get(ctx context.Context, id string) (*model.Submission, error) {
	return loadSubmission(ctx, r.s.conn(), id)
}

func loadSubmission(ctx context.Context, c conn, id string) (*model.Submission, error) {
	sub, err := scanSubmission(c.queryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id=?`, id))
	if err != nil {
		return nil, classify(err, "submission "+id)
	}
	if sub.Options, err = listOptions(ctx, c, `WHERE submission_id=?`, id); err != nil {
		return nil, err
	}
	if sub.Files, err = listFiles(ctx, c, `WHERE submission_id=?`, id); err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *submissions) List(ctx context.Context) ([]*model.Submission, error) {
	c := r.s.conn()
	rows, err := c.query(ctx, `SELECT `+submissionColumns+` FROM submissions ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list submissions")
	}
	var out []*model.Submission
	byID := map[string]*model.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		sub.Options = []*model.WebsiteOption{}
		sub.Files = []*model.SubmissionFile{}
		out = append(out, sub)
		byID[sub.ID] = sub
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, errors.Wrap(err, "list submissions")
	}
	_ = rows.Close()

	opts, err := listOptions(ctx, c, ``)
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		if sub, ok := byID[o.SubmissionID]; ok {
			sub.Options = append(sub.Options, o)
		}
	}
	fs, err := listFiles(ctx, c, ``)
	if err != nil {
		return nil, err
	}
	for _, f := range fs {
		if sub, ok := byID[f.SubmissionID]; ok {
			sub.Files = append(sub.Files, f)
		}
	}
	if out == nil {
		out = []*model.Submission{}
	}
	return out, nil
}

func (r *submissions) Update(ctx context.Context, sub *model.Submission) error {
	sub.UpdatedAt = time.Now().UTC()
	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		schedule, err := toJSON(sub.Schedule)
		if err != nil {
			return nil, err
		}
		meta, err := toJSON(sub.Metadata)
		if err != nil {
			return nil, err
		}
		res, err := c.exec(ctx, `UPDATE submissions SET is_scheduled=?, schedule=?, metadata=?, updated_at=? WHERE id=?`,
			sub.IsScheduled, schedule, meta, formatTime(sub.UpdatedAt), sub.ID)
		if err != nil {
			return nil, classify(err, "update submission "+sub.ID)
		}
		if err := requireAffected(res, "submission "+sub.ID); err != nil {
			return nil, err
		}
		return []events.Change{change(events.ChangeUpdate, sub)}, nil
	})
}

// Delete removes the submission; options and files go with it through ON DELETE CASCADE.
func (r *submissions) Delete(ctx context.Context, id string) error {
	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		sub, err := loadSubmission(ctx, c, id)
		if err != nil {
			return nil, err
		}
		res, err := c.exec(ctx, `DELETE FROM submissions WHERE id=?`, id)
		if err != nil {
			return nil, classify(err, "delete submission "+id)
		}
		if err := requireAffected(res, "submission "+id); err != nil {
			return nil, err
		}
		out := []events.Change{change(events.ChangeDelete, sub)}
		for _, o := range sub.Options {
			out = append(out, change(events.ChangeDelete, o))
		}
		for _, f := range sub.Files {
			out = append(out, change(events.ChangeDelete, f))
		}
		return out, nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*model.Submission, error) {
	var (
		sub                  model.Submission
		typ, schedule, meta  string
		createdAt, updatedAt string
	)
	if err := row.Scan(&sub.ID, &typ, &sub.IsScheduled, &schedule, &meta, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, errors.Wrap(err, "scan submission")
	}
	sub.Type = model.SubmissionType(typ)
	if err := fromJSON(schedule, &sub.Schedule); err != nil {
		return nil, err
	}
	if err := fromJSON(meta, &sub.Metadata); err != nil {
		return nil, err
	}
	if sub.Metadata == nil {
		sub.Metadata = map[string]any{}
	}
	sub.CreatedAt = parseTime(createdAt)
	sub.UpdatedAt = parseTime(updatedAt)
	return &sub, nil
}
