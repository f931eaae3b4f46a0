package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"memento/internal/api"
	"memento/internal/config"
	"memento/internal/logging"
	"memento/internal/notifications"
	"memento/internal/preflight"
	"memento/internal/workflow"
)

// LockFileName is the flock guarding single-instance execution.
const LockFileName = "mementod.lock"

// Daemon owns the workflow manager and the API server and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	workflow *workflow.Manager
	logPath  string

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, logger, and workflow manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, LockFileName)
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		workflow: wf,
		logPath:  filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, bootstraps the working directories and
// starts the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another memento daemon instance is already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("ensure directories: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	srv := newAPIServer(d.cfg, d, d.logger)
	if err := srv.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.api = srv
	d.cancel = cancel

	d.running.Store(true)
	d.logger.Info("memento daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", srv.addr()),
	)
	return nil
}

// Stop stops the API server and releases the lock. An active run keeps going
// until Close.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("memento daemon stopped")
}

// Close stops the daemon, cancels any active run and waits for it.
func (d *Daemon) Close() error {
	d.Stop()
	d.workflow.Close()
	return nil
}

// Addr returns the API listen address, or "" when not running.
func (d *Daemon) Addr() string {
	if !d.running.Load() || d.api == nil {
		return ""
	}
	return d.api.addr()
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		OutputDir:    d.workflow.OutputDir(),
		Progress:     d.workflow.Progress(),
		Health:       api.FromHealth(d.workflow.Health()),
		Dependencies: api.FromDependencies(preflight.CheckSystemDeps(d.cfg)),
	}
	if err := d.workflow.LastError(); err != nil {
		status.LastError = err.Error()
	}
	return status
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
