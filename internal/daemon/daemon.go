// Package daemon wires the catalog, pipeline orchestrator, and HTTP
// Composition Service into a single long-running process, enforcing
// single-instance execution with a lock file.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"wordreel/internal/catalog"
	"wordreel/internal/config"
	"wordreel/internal/httpapi"
	"wordreel/internal/logging"
	"wordreel/internal/pipeline"
)

// Daemon coordinates the HTTP Composition Service and enforces
// single-instance execution via a lock file under the temp directory.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	catalog *catalog.Store
	orch    *pipeline.Orchestrator
	api     *httpapi.Server
	archive *logging.EventArchive

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// New constructs a daemon with initialized dependencies. The caller owns
// the catalog store's lifetime and must close it after Close returns.
// hub is optional: when non-nil, the Composition Service's /logs endpoint
// serves the events it buffers, backed by an on-disk journal named for this
// run (<outputDir>/logs/wordreel-<runID>.events.jsonl) so a client asking
// for events older than the in-memory buffer still gets them, not just a
// truncated tail. Journals from prior runs are pruned on Start per
// [config.Logging].RetentionDays.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger, hub *logging.StreamHub) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, catalog store, and logger")
	}

	orch := pipeline.New(cfg, store, logger)
	lockPath := filepath.Join(cfg.Paths.TempDir, "wordreeld.lock")

	var archive *logging.EventArchive
	if hub != nil && cfg.Paths.OutputDir != "" {
		runID := time.Now().UTC().Format("20060102T150405.000Z")
		eventsPath := filepath.Join(cfg.Paths.OutputDir, "logs", fmt.Sprintf("wordreel-%s.events.jsonl", runID))
		a, err := logging.NewEventArchive(eventsPath)
		if err != nil {
			return nil, fmt.Errorf("open log event archive: %w", err)
		}
		archive = a
		hub.AddSink(archive)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "daemon")),
		catalog:  store,
		orch:     orch,
		archive:  archive,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = httpapi.New(cfg, orch, logger, hub, archive)
	return d, nil
}

// Start acquires the single-instance lock and begins serving the
// Composition Service HTTP API. It blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another wordreeld instance is already running")
	}

	d.pruneOldLogs()

	if err := d.api.Start(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start http api: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("wordreeld started", logging.String("lock", d.lockPath))

	<-ctx.Done()
	d.Stop()
	return nil
}

// Stop shuts down the HTTP API and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.api.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("wordreeld stopped")
}

// pruneOldLogs removes event journals left behind by earlier daemon runs
// under <OutputDir>/logs older than cfg.Logging.RetentionDays, leaving this
// run's own journal and the single shared wordreel.log file untouched.
func (d *Daemon) pruneOldLogs() {
	if d.cfg.Paths.OutputDir == "" {
		return
	}
	logDir := filepath.Join(d.cfg.Paths.OutputDir, "logs")
	var eventsPath string
	if d.archive != nil {
		eventsPath = d.archive.Path()
	}
	logging.CleanupOldLogs(d.logger, d.cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: logDir, Pattern: "wordreel-*.events.jsonl", Exclude: []string{eventsPath}},
	)
}

// Close releases resources held by the daemon, including the catalog store
// and the log event archive.
func (d *Daemon) Close() error {
	d.Stop()
	if d.archive != nil {
		if err := d.archive.Close(); err != nil {
			d.logger.Warn("failed to close log event archive", logging.Error(err))
		}
	}
	if d.catalog != nil {
		return d.catalog.Close()
	}
	return nil
}
