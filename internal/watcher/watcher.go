// Package watcher imports files dropped into watched directories.
//
// Each watcher directory carries a pb-meta.json sidecar listing the names already imported.
// A pass imports the regular files not on that list; successes are recorded, failures are
// retried on the next pass.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mycelian/postybirb/internal/metrics"
	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/services"
)

const (
	MetaFileName = "pb-meta.json"
	Origin       = "directory-watcher"
)

// Creator starts new submissions from imported files.
type Creator interface {
	Create(ctx context.Context, req services.CreateSubmissionRequest, upload *services.FileUpload) (*model.Submission, error)
}

// Appender attaches imported files to existing submissions.
type Appender interface {
	AppendFile(ctx context.Context, submissionID string, upload *services.FileUpload) (*model.Submission, error)
}

type Lister interface {
	List(ctx context.Context) ([]*model.DirectoryWatcher, error)
}

type Options struct {
	Interval    time.Duration
	Concurrency int
	// LocksDir holds one lock file per watcher. Empty disables locking.
	LocksDir string
}

// FileOutcome is the result of one file in a pass.
type FileOutcome struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type PassReport struct {
	WatcherID string        `json:"watcherId"`
	Skipped   bool          `json:"skipped,omitempty"`
	Files     []FileOutcome `json:"files"`
}

type meta struct {
	Read []string `json:"read"`
}

type Runner struct {
	watchers Lister
	creator  Creator
	appender Appender
	opts     Options
	log      zerolog.Logger
}

func New(watchers Lister, creator Creator, appender Appender, opts Options, log zerolog.Logger) *Runner {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Runner{
		watchers: watchers,
		creator:  creator,
		appender: appender,
		opts:     opts,
		log:      log.With().Str("component", "watcher").Logger(),
	}
}

// Run executes a pass at start and then every interval until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	r.log.Info().Dur("interval", r.opts.Interval).Int("concurrency", r.opts.Concurrency).Msg("directory watcher started")
	t := time.NewTicker(r.opts.Interval)
	defer t.Stop()
	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("directory watcher stopped")
			return
		case <-t.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce reads every watcher that has a path.
func (r *Runner) RunOnce(ctx context.Context) []PassReport {
	list, err := r.watchers.List(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("list directory watchers")
		return nil
	}
	var out []PassReport
	for _, w := range list {
		if w.Path == "" {
			continue
		}
		rep, err := r.Read(ctx, w)
		if err != nil {
			r.log.Warn().Err(err).Str("watcher_id", w.ID).Str("path", w.Path).Msg("directory watcher pass failed")
			continue
		}
		out = append(out, rep)
	}
	return out
}

// Read runs one pass over a watcher directory.
func (r *Runner) Read(ctx context.Context, w *model.DirectoryWatcher) (PassReport, error) {
	rep := PassReport{WatcherID: w.ID, Files: []FileOutcome{}}

	if r.opts.LocksDir != "" {
		if err := os.MkdirAll(r.opts.LocksDir, 0o755); err != nil {
			return rep, fmt.Errorf("create locks dir: %w", err)
		}
		lock := flock.New(filepath.Join(r.opts.LocksDir, "watcher-"+w.ID+".lock"))
		ok, err := lock.TryLock()
		if err != nil {
			return rep, fmt.Errorf("acquire watcher lock: %w", err)
		}
		if !ok {
			rep.Skipped = true
			return rep, nil
		}
		defer func() { _ = lock.Unlock() }()
	}

	entries, err := os.ReadDir(w.Path)
	if err != nil {
		return rep, fmt.Errorf("read directory: %w", err)
	}
	m := loadMeta(filepath.Join(w.Path, MetaFileName))
	seen := make(map[string]struct{}, len(m.Read))
	for _, name := range m.Read {
		seen[name] = struct{}{}
	}

	var pending []string
	for _, e := range entries {
		if !e.Type().IsRegular() || e.Name() == MetaFileName {
			continue
		}
		if _, done := seen[e.Name()]; done {
			continue
		}
		pending = append(pending, e.Name())
	}

	outcomes := make([]FileOutcome, len(pending))
	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for i, name := range pending {
		g.Go(func() error {
			out := FileOutcome{Name: name, OK: true}
			if err := r.processFile(ctx, w, name); err != nil {
				out.OK = false
				out.Error = err.Error()
				r.log.Warn().Err(err).Str("watcher_id", w.ID).Str("file", name).Msg("import failed, will retry next pass")
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	for _, out := range outcomes {
		if out.OK {
			m.Read = append(m.Read, out.Name)
			metrics.WatcherFiles.WithLabelValues("imported").Inc()
		} else {
			metrics.WatcherFiles.WithLabelValues("failed").Inc()
		}
	}
	rep.Files = outcomes

	if err := writeMeta(filepath.Join(w.Path, MetaFileName), m); err != nil {
		r.log.Error().Err(err).Str("watcher_id", w.ID).Msg("failed to update watcher metadata")
	} else {
		r.log.Debug().Str("watcher_id", w.ID).Int("read", len(m.Read)).Msg("watcher metadata updated")
	}
	return rep, nil
}

func (r *Runner) processFile(ctx context.Context, w *model.DirectoryWatcher, name string) error {
	upload := func() *services.FileUpload {
		return &services.FileUpload{FileName: name, Path: filepath.Join(w.Path, name), Origin: Origin}
	}
	switch w.ImportAction {
	case model.ImportActionNewSubmission:
		_, err := r.creator.Create(ctx, services.CreateSubmissionRequest{Name: name, Type: model.SubmissionTypeFile}, upload())
		return err
	case model.ImportActionAddToSubmission:
		// targets run in order; the first failure stops the rest and earlier appends stay
		for _, id := range w.SubmissionIDs {
			if _, err := r.appender.AppendFile(ctx, id, upload()); err != nil {
				return fmt.Errorf("append to %s: %w", id, err)
			}
		}
		return nil
	}
	return fmt.Errorf("unknown import action %q", w.ImportAction)
}

// loadMeta treats a missing, unreadable or malformed sidecar as an empty read list.
func loadMeta(path string) meta {
	var m meta
	b, err := os.ReadFile(path)
	if err != nil {
		return meta{Read: []string{}}
	}
	if err := json.Unmarshal(b, &m); err != nil || m.Read == nil {
		return meta{Read: []string{}}
	}
	return m
}

func writeMeta(path string, m meta) error {
	b, err := json.MarshalIndent(m, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
