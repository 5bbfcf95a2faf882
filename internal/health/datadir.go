package health

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DataDirChecker verifies the data directory accepts writes.
type DataDirChecker struct {
	dir     string
	healthy atomic.Int32
	log     zerolog.Logger
}

func NewDataDirChecker(dir string, log zerolog.Logger) *DataDirChecker {
	return &DataDirChecker{dir: dir, log: log}
}

func (c *DataDirChecker) Name() string    { return "data_dir" }
func (c *DataDirChecker) IsHealthy() bool { return c.healthy.Load() == 1 }

func (c *DataDirChecker) Start(ctx context.Context, interval time.Duration) {
	Loop(ctx, interval, func() {
		if err := c.probe(); err != nil {
			c.log.Error().Stack().Err(err).Str("checker", c.Name()).Str("dir", c.dir).Msg("data dir check failed")
			c.healthy.Store(0)
			return
		}
		c.healthy.Store(1)
	})
}

func (c *DataDirChecker) probe() error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(c.dir, ".health-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(filepath.Clean(name))
}
