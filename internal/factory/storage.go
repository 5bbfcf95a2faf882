package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mycelian/postybirb/internal/config"
	"github.com/mycelian/postybirb/internal/events"
	"github.com/mycelian/postybirb/internal/store/postgres"
	"github.com/mycelian/postybirb/internal/store/sqlite"
	"github.com/mycelian/postybirb/internal/store/sqlstore"
)

// NewStore opens the configured driver and applies migrations before returning.
// Unlike remote dependencies, the store must be usable before the HTTP server starts.
func NewStore(ctx context.Context, cfg *config.Config, bus events.Publisher, log zerolog.Logger) (*sqlstore.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		st, err := sqlite.New(ctx, cfg.SQLitePath, bus)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("driver", cfg.DBDriver).Str("path", cfg.SQLitePath).Msg("store opened")
		return st, nil
	case "postgres":
		st, err := postgres.New(ctx, cfg.PostgresDSN, bus)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("driver", cfg.DBDriver).Msg("store opened")
		return st, nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
