package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mycelian/postybirb/internal/events"
	"github.com/mycelian/postybirb/internal/model"
)

type accounts struct{ s *Store }

const accountColumns = `id, name, website, account_groups, data, created_at, updated_at`

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		a                    model.Account
		groups, data         string
		createdAt, updatedAt string
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Website, &groups, &data, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := fromJSON(groups, &a.Groups); err != nil {
		return nil, err
	}
	if err := fromJSON(data, &a.Data); err != nil {
		return nil, err
	}
	if a.Groups == nil {
		a.Groups = []string{}
	}
	if a.Data == nil {
		a.Data = map[string]any{}
	}
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

func (r *accounts) Create(ctx context.Context, a *model.Account) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	if a.Groups == nil {
		a.Groups = []string{}
	}
	if a.Data == nil {
		a.Data = map[string]any{}
	}
	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		groups, err := toJSON(a.Groups)
		if err != nil {
			return nil, err
		}
		data, err := toJSON(a.Data)
		if err != nil {
			return nil, err
		}
		if _, err := c.exec(ctx, `INSERT INTO accounts (`+accountColumns+`) VALUES (?,?,?,?,?,?,?)`,
			a.ID, a.Name, a.Website, groups, data, formatTime(a.CreatedAt), formatTime(a.UpdatedAt)); err != nil {
			return nil, classify(err, "insert account "+a.ID)
		}
		return []events.Change{change(events.ChangeCreate, a)}, nil
	})
}

func (r *accounts) Get(ctx context.Context, id string) (*model.Account, error) {
	a, err := scanAccount(r.s.conn().queryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=?`, id))
	if err != nil {
		return nil, classify(err, "account "+id)
	}
	return a, nil
}

func (r *accounts) List(ctx context.Context) ([]*model.Account, error) {
	rows, err := r.s.conn().query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list accounts")
	}
	defer func() { _ = rows.Close() }()
	out := []*model.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, errors.Wrap(rows.Err(), "list accounts")
}

func (r *accounts) Update(ctx context.Context, a *model.Account) error {
	a.UpdatedAt = time.Now().UTC()
	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		groups, err := toJSON(a.Groups)
		if err != nil {
			return nil, err
		}
		data, err := toJSON(a.Data)
		if err != nil {
			return nil, err
		}
		res, err := c.exec(ctx, `UPDATE accounts SET name=?, account_groups=?, data=?, updated_at=? WHERE id=?`,
			a.Name, groups, data, formatTime(a.UpdatedAt), a.ID)
		if err != nil {
			return nil, classify(err, "update account "+a.ID)
		}
		if err := requireAffected(res, "account "+a.ID); err != nil {
			return nil, err
		}
		return []events.Change{change(events.ChangeUpdate, a)}, nil
	})
}

func (r *accounts) Delete(ctx context.Context, id string) error {
	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		a, err := scanAccount(c.queryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=?`, id))
		if err != nil {
			return nil, classify(err, "account "+id)
		}
		if _, err := c.exec(ctx, `DELETE FROM accounts WHERE id=?`, id); err != nil {
			return nil, classify(err, "delete account "+id)
		}
		return []events.Change{change(events.ChangeDelete, a)}, nil
	})
}
