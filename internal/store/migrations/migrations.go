// Package migrations embeds the goose schema for each supported SQL dialect.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// Up applies every pending migration for the named dialect ("sqlite" or "postgres").
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	var (
		gd  goose.Dialect
		dir string
	)
	switch dialect {
	case "sqlite":
		gd, dir = goose.DialectSQLite3, "sqlite"
	case "postgres":
		gd, dir = goose.DialectPostgres, "postgres"
	default:
		return fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}

	sub, err := fs.Sub(files, dir)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(gd, db, sub)
	if err != nil {
		return fmt.Errorf("migrations: provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return nil
}
