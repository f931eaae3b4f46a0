// Package daemonctl launches, locates and stops the memento daemon process on
// behalf of the CLI.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"memento/internal/client"
	"memento/internal/config"
	"memento/internal/daemon"
	"memento/internal/daemonrun"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
	PID      int
}

// ErrDaemonNotRunning indicates the daemon API is unreachable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// pollInterval is the delay between health probes.
const pollInterval = 200 * time.Millisecond

// Launch starts a detached `memento serve` process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"serve"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForHealth polls the health endpoint until it answers or timeout elapses.
func WaitForHealth(ctx context.Context, c *client.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		_, err := c.Health(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon unless it already answers, then waits for
// it to become healthy.
func EnsureStarted(ctx context.Context, c *client.Client, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if status, err := c.Status(ctx); err == nil && status.Running {
		return StartResult{State: StartStateAlreadyRunning, PID: status.PID}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	if err := WaitForHealth(ctx, c, waitTimeout); err != nil {
		return StartResult{}, err
	}
	result := StartResult{State: StartStateStarted, Launched: true}
	if status, err := c.Status(ctx); err == nil {
		result.PID = status.PID
	}
	return result, nil
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Stop sends SIGTERM to the daemon and escalates to SIGKILL when it is still
// answering after gracePeriod.
func Stop(ctx context.Context, c *client.Client, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	pid := 0
	if status, err := c.Status(ctx); err == nil {
		pid = status.PID
	} else if filePID, pidErr := daemonrun.ReadPID(cfg); pidErr == nil {
		pid = filePID
	} else {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid <= 0 {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return StopResult{}, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			cleanupFiles(cfg)
			return StopResult{PID: pid}, nil
		}
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	result := StopResult{PID: pid}
	if WaitForShutdown(ctx, c, gracePeriod) == nil {
		return result, nil
	}
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	cleanupFiles(cfg)
	result.ForcedKill = true
	return result, nil
}

// WaitForShutdown waits until the daemon API stops answering.
func WaitForShutdown(ctx context.Context, c *client.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := c.Health(ctx); err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return fmt.Errorf("daemon did not stop within %s", timeout)
}

func cleanupFiles(cfg *config.Config) {
	if cfg == nil || strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return
	}
	_ = os.Remove(filepath.Join(cfg.Paths.LogDir, daemonrun.PIDFileName))
	_ = os.Remove(filepath.Join(cfg.Paths.LogDir, daemon.LockFileName))
}
