package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mycelian/postybirb/internal/events"
	"github.com/mycelian/postybirb/internal/model"
)

type settings struct{ s *Store }

const settingsColumns = `id, profile, settings, created_at, updated_at`

func scanSettings(row rowScanner) (*model.Settings, error) {
	var (
		st                   model.Settings
		body                 string
		createdAt, updatedAt string
	)
	if err := row.Scan(&st.ID, &st.Profile, &body, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := fromJSON(body, &st.Settings); err != nil {
		return nil, err
	}
	if st.Settings.HiddenWebsites == nil {
		st.Settings.HiddenWebsites = []string{}
	}
	st.CreatedAt = parseTime(createdAt)
	st.UpdatedAt = parseTime(updatedAt)
	return &st, nil
}

func (r *settings) Create(ctx context.Context, st *model.Settings) error {
	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	st.CreatedAt, st.UpdatedAt = now, now
	if st.Settings.HiddenWebsites == nil {
		st.Settings.HiddenWebsites = []string{}
	}
	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		body, err := toJSON(st.Settings)
		if err != nil {
			return nil, err
		}
		if _, err := c.exec(ctx, `INSERT INTO settings (`+settingsColumns+`) VALUES (?,?,?,?,?)`,
			st.ID, st.Profile, body, formatTime(st.CreatedAt), formatTime(st.UpdatedAt)); err != nil {
			return nil, classify(err, "insert settings "+st.Profile)
		}
		return []events.Change{change(events.ChangeCreate, st)}, nil
	})
}

func (r *settings) Get(ctx context.Context, id string) (*model.Settings, error) {
	st, err := scanSettings(r.s.conn().queryRow(ctx, `SELECT `+settingsColumns+` FROM settings WHERE id=?`, id))
	if err != nil {
		return nil, classify(err, "settings "+id)
	}
	return st, nil
}

func (r *settings) GetByProfile(ctx context.Context, profile string) (*model.Settings, error) {
	st, err := scanSettings(r.s.conn().queryRow(ctx, `SELECT `+settingsColumns+` FROM settings WHERE profile=?`, profile))
	if err != nil {
		return nil, classify(err, "settings profile "+profile)
	}
	return st, nil
}

func (r *settings) List(ctx context.Context) ([]*model.Settings, error) {
	rows, err := r.s.conn().query(ctx, `SELECT `+settingsColumns+` FROM settings ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list settings")
	}
	defer func() { _ = rows.Close() }()
	out := []*model.Settings{}
	for rows.Next() {
		st, err := scanSettings(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, errors.Wrap(rows.Err(), "list settings")
}

func (r *settings) Update(ctx context.Context, st *model.Settings) error {
	st.UpdatedAt = time.Now().UTC()
	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		body, err := toJSON(st.Settings)
		if err != nil {
			return nil, err
		}
		res, err := c.exec(ctx, `UPDATE settings SET settings=?, updated_at=? WHERE id=?`,
			body, formatTime(st.UpdatedAt), st.ID)
		if err != nil {
			return nil, classify(err, "update settings "+st.ID)
		}
		if err := requireAffected(res, "settings "+st.ID); err != nil {
			return nil, err
		}
		return []events.Change{change(events.ChangeUpdate, st)}, nil
	})
}
