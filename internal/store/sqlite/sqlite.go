// Package sqlite opens the embedded SQLite database used by desktop installs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/mycelian/postybirb/internal/events"
	"github.com/mycelian/postybirb/internal/store/migrations"
	"github.com/mycelian/postybirb/internal/store/sqlstore"
)

// Open opens (or creates) a SQLite database at path with WAL and foreign keys enabled.
// The pool is limited to one connection so writers serialize.
func Open(path string) (*sql.DB, error) {
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New opens path, applies migrations and returns a store publishing to bus.
func New(ctx context.Context, path string, bus events.Publisher) (*sqlstore.Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(ctx, db, "sqlite"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sqlstore.New(db, sqlstore.SQLite, bus), nil
}
