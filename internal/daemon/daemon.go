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

	"shortform/internal/config"
	"shortform/internal/logging"
	"shortform/internal/notifications"
	"shortform/internal/queue"
	"shortform/internal/workflow"
)

// Daemon runs the workflow manager as a long-lived background process and
// enforces single-instance execution through a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	started time.Time
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := filepath.Join(cfg.Paths.StateDir, "shortform.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		workflow: wf,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, resets items orphaned by a previous
// crash, and launches the workflow manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shortform daemon instance is already running")
	}

	reset, err := d.store.ResetStuckProcessing(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reset stuck processing items: %w", err)
	}
	if reset > 0 {
		d.logger.Info("reset items stuck in processing",
			logging.Int64("count", reset),
			logging.String(logging.FieldEventType, "startup_reset"))
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel
	d.started = time.Now()
	d.running.Store(true)

	d.logger.Info("daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock_file", d.lockPath))
	if err := d.notifier.NotifyDaemonStarted(ctx); err != nil {
		d.logger.Warn("daemon start notification failed", logging.Error(err))
	}
	return nil
}

// Stop drains in-flight work, marks any still-processing items as failed so
// operators can retry them, and releases the lock.
func (d *Daemon) Stop(ctx context.Context) {
	if !d.running.Load() {
		return
	}
	d.running.Store(false)

	stats := d.workflow.SessionStats()
	uptime := time.Since(d.started)

	d.cancel()
	d.workflow.Stop()

	if failed, err := d.store.FailProcessing(ctx, "daemon shut down during processing"); err != nil {
		d.logger.Warn("failed to mark in-flight items", logging.Error(err))
	} else if failed > 0 {
		d.logger.Info("marked in-flight items as failed", logging.Int64("count", failed))
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}

	d.logger.Info("daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"),
		logging.Duration("uptime", uptime),
		logging.Int("produced", stats.Produced),
		logging.Int("failed", stats.Failed),
		logging.Int("rejected", stats.Rejected),
		logging.Float64("avg_quality", stats.AvgQuality))
	if err := d.notifier.NotifyDaemonStopped(ctx, stats.Produced, stats.Failed+stats.Rejected, uptime); err != nil {
		d.logger.Warn("daemon stop notification failed", logging.Error(err))
	}
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LockPath returns the lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}
