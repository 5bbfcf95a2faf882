// Package sqlstore implements store.Store over database/sql for SQLite and PostgreSQL.
// Mutations are captured as events.Change values and published after their commit.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"github.com/mycelian/postybirb/internal/events"
	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/store"
)

// Dialect selects placeholder syntax and error classification.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// rebind rewrites '?' placeholders to '$n' for postgres.
func (d Dialect) rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type conn struct {
	q querier
	d Dialect
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.d.rebind(query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.d.rebind(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.d.rebind(query), args...)
}

type backend struct {
	db      *sql.DB
	dialect Dialect
	bus     events.Publisher
}

// Store is a store.Store bound either to the pool or to one open transaction.
type Store struct {
	b       *backend
	tx      *sql.Tx
	pending *[]events.Change
}

// New wraps an open, migrated database. bus may be nil when no one listens.
func New(db *sql.DB, dialect Dialect, bus events.Publisher) *Store {
	return &Store{b: &backend{db: db, dialect: dialect, bus: bus}}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Submissions() store.Submissions             { return &submissions{s: s} }
func (s *Store) WebsiteOptions() store.WebsiteOptions       { return &options{s: s} }
func (s *Store) Files() store.Files                         { return &files{s: s} }
func (s *Store) Accounts() store.Accounts                   { return &accounts{s: s} }
func (s *Store) DirectoryWatchers() store.DirectoryWatchers { return &watchers{s: s} }
func (s *Store) Settings() store.Settings                   { return &settings{s: s} }

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB { return s.b.db }

func (s *Store) Ping(ctx context.Context) error { return s.b.db.PingContext(ctx) }

// HealthPing implements health.HealthPinger.
func (s *Store) HealthPing(ctx context.Context) error { return s.Ping(ctx) }

func (s *Store) Close() error { return s.b.db.Close() }

func (s *Store) conn() conn {
	if s.tx != nil {
		return conn{q: s.tx, d: s.b.dialect}
	}
	return conn{q: s.b.db, d: s.b.dialect}
}

// WithTx runs fn inside one transaction. Nested calls join the outer transaction.
// The transaction ignores caller cancellation once begun, and changes are published only after commit.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}

	dctx := context.WithoutCancel(ctx)
	tx, err := s.b.db.BeginTx(dctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}

	var pending []events.Change
	txs := &Store{b: s.b, tx: tx, pending: &pending}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(dctx, txs); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	if s.b.bus != nil && len(pending) > 0 {
		s.b.bus.Publish(dctx, pending)
	}
	return nil
}

// mutate runs fn as part of the current transaction, or as its own commit outside one.
func (s *Store) mutate(ctx context.Context, fn func(ctx context.Context, c conn) ([]events.Change, error)) error {
	if s.tx == nil {
		return s.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
			return tx.(*Store).mutate(ctx, fn)
		})
	}
	changes, err := fn(ctx, s.conn())
	if err != nil {
		return err
	}
	*s.pending = append(*s.pending, changes...)
	return nil
}

func change(kind events.ChangeKind, e model.Entity) events.Change {
	return events.Change{Kind: kind, Entity: e}
}

// classify maps driver errors onto the model error sentinels.
func classify(err error, what string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return model.NotFound("%s", what)
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "23503") {
		return model.Conflict(err, "%s", what)
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return model.Conflict(err, "%s", what)
	}
	return errors.Wrap(err, what)
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, what)
	}
	if n == 0 {
		return model.NotFound("%s", what)
	}
	return nil
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "encode column")
	}
	return string(b), nil
}

func fromJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return errors.Wrap(json.Unmarshal([]byte(s), v), "decode column")
}
