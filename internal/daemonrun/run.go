package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"memento/internal/config"
	"memento/internal/daemon"
	"memento/internal/deps"
	"memento/internal/logging"
	"memento/internal/notifications"
	"memento/internal/preflight"
	"memento/internal/workflow"
)

// PIDFileName is written under the log directory while the daemon runs.
const PIDFileName = "memento.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the memento daemon and blocks until the context is cancelled or
// the process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logPath := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		FilePath:    logPath,
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(signalCtx, logger, cfg)
	pidPath := filepath.Join(cfg.Paths.LogDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManager(cfg, logger, workflow.WithNotifier(notifier))

	d, err := daemon.New(cfg, logger, manager)
	if err != nil {
		manager.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.api_bind and that no other daemon holds the lock"),
			logging.String(logging.FieldImpact, "imports cannot be started over the API"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("memento daemon shutting down")
	return nil
}

// ReadPID returns the pid recorded by a running daemon.
func ReadPID(cfg *config.Config) (int, error) {
	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, PIDFileName))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffmpeg := deps.ResolveFFmpeg(cfg.FFmpegBinary())
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("ffmpeg_available", ffmpeg.Available),
		logging.String("ffmpeg_binary", ffmpeg.Command),
		logging.Bool("api_token_present", strings.TrimSpace(cfg.Paths.APIToken) != ""),
		logging.String("allowed_root", cfg.Paths.AllowedRoot),
	}
	for _, result := range preflight.RunAll(ctx, cfg) {
		attrs = append(attrs, logging.Bool(preflightKey(result.Name), result.Passed))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}

func preflightKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_") + "_ok"
}
