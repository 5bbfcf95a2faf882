package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mycelian/postybirb/internal/events"
	"github.com/mycelian/postybirb/internal/model"
)

type options struct{ s *Store }

const optionColumns = `id, submission_id, account_id, data, is_default, created_at, updated_at`

func insertOption(ctx context.Context, c conn, o *model.WebsiteOption) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	if o.Data == nil {
		o.Data = model.FieldData{}
	}
	data, err := toJSON(o.Data)
	if err != nil {
		return err
	}
	if _, err := c.exec(ctx, `INSERT INTO website_options (`+optionColumns+`) VALUES (?,?,?,?,?,?,?)`,
		o.ID, o.SubmissionID, o.AccountID, data, o.IsDefault, formatTime(o.CreatedAt), formatTime(o.UpdatedAt)); err != nil {
		return classify(err, "insert website option "+o.ID)
	}
	return nil
}

func listOptions(ctx context.Context, c conn, where string, args ...any) ([]*model.WebsiteOption, error) {
	rows, err := c.query(ctx, `SELECT `+optionColumns+` FROM website_options `+where+` ORDER BY is_default DESC, created_at, id`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list website options")
	}
	defer func() { _ = rows.Close() }()
	out := []*model.WebsiteOption{}
	for rows.Next() {
		o, err := scanOption(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, errors.Wrap(rows.Err(), "list website options")
}

func scanOption(row rowScanner) (*model.WebsiteOption, error) {
	var (
		o                    model.WebsiteOption
		data                 string
		createdAt, updatedAt string
	)
	if err := row.Scan(&o.ID, &o.SubmissionID, &o.AccountID, &data, &o.IsDefault, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := fromJSON(data, &o.Data); err != nil {
		return nil, err
	}
	if o.Data == nil {
		o.Data = model.FieldData{}
	}
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)
	return &o, nil
}

func (r *options) Create(ctx context.Context, o *model.WebsiteOption) error {
	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		if err := insertOption(ctx, c, o); err != nil {
			return nil, err
		}
		return []events.Change{change(events.ChangeCreate, o)}, nil
	})
}

func (r *options) Get(ctx context.Context, id string) (*model.WebsiteOption, error) {
	o, err := scanOption(r.s.conn().queryRow(ctx, `SELECT `+optionColumns+` FROM website_options WHERE id=?`, id))
	if err != nil {
		return nil, classify(err, "website option "+id)
	}
	return o, nil
}

func (r *options) ListBySubmission(ctx context.Context, submissionID string) ([]*model.WebsiteOption, error) {
	return listOptions(ctx, r.s.conn(), `WHERE submission_id=?`, submissionID)
}

func (r *options) ListByAccount(ctx context.Context, accountID string) ([]*model.WebsiteOption, error) {
	return listOptions(ctx, r.s.conn(), `WHERE account_id=?`, accountID)
}

func (r *options) Update(ctx context.Context, o *model.WebsiteOption) error {
	o.UpdatedAt = time.Now().UTC()
	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		data, err := toJSON(o.Data)
		if err != nil {
			return nil, err
		}
		res, err := c.exec(ctx, `UPDATE website_options SET data=?, updated_at=? WHERE id=?`,
			data, formatTime(o.UpdatedAt), o.ID)
		if err != nil {
			return nil, classify(err, "update website option "+o.ID)
		}
		if err := requireAffected(res, "website option "+o.ID); err != nil {
			return nil, err
		}
		return []events.Change{change(events.ChangeUpdate, o)}, nil
	})
}

func (r *options) Delete(ctx context.Context, id string) error {
	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		o, err := scanOption(c.queryRow(ctx, `SELECT `+optionColumns+` FROM website_options WHERE id=?`, id))
		if err != nil {
			return nil, classify(err, "website option "+id)
		}
		if _, err := c.exec(ctx, `DELETE FROM website_options WHERE id=?`, id); err != nil {
			return nil, classify(err, "delete website option "+id)
		}
		return []events.Change{change(events.ChangeDelete, o)}, nil
	})
}
