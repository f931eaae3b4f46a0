package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"memento/internal/fileutil"
	"memento/internal/importer"
	"memento/internal/ledger"
	"memento/internal/logging"
	"memento/internal/manifest"
	"memento/internal/services"
)

// Start validates req and launches a run in the background. The run outlives
// ctx; use Cancel or Restart to stop it. Notifications are published without
// holding the manager lock.
func (m *Manager) Start(ctx context.Context, req StartRequest) (StartResult, error) {
	m.mu.Lock()
	result, after, err := m.startLocked(ctx, req)
	m.mu.Unlock()
	if after != nil {
		after()
	}
	return result, err
}

// startLocked may return a follow-up that Start runs once the lock is released.
func (m *Manager) startLocked(ctx context.Context, req StartRequest) (StartResult, func(), error) {
	if status := m.progress.Status(); status.Active() {
		return StartResult{}, nil, &AlreadyRunningError{RunID: m.progress.Snapshot().RunID, Status: status}
	}

	outputDir, err := ResolveOutputDir(req.OutputDir, m.cfg.Paths.DownloadsDir, m.cfg.Paths.AllowedRoot)
	if err != nil {
		return StartResult{}, nil, err
	}

	records, err := manifest.Load(req.ManifestPath)
	if err != nil {
		m.lastErr = err
		return StartResult{}, func() { m.notifyError(ctx, "manifest", err) }, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		err = services.Wrap(services.ErrConfiguration, "start", "create output directory", outputDir, err)
		m.lastErr = err
		return StartResult{}, nil, err
	}

	// A finished run still holds its context.
	m.stopLocked()

	concurrency := req.Concurrency
	if concurrency <= 0 {
		concurrency = m.cfg.Import.Concurrency
	}
	eligible, skipped := selectEligible(records, outputDir, req.SkipExisting)
	runID := uuid.NewString()

	m.downloads.Reset()
	m.failures.Reset()
	m.progress.Begin(runID, len(eligible), skipped)
	m.gate.Open()
	m.outputDir = outputDir
	m.lastErr = nil

	runCtx, cancel := context.WithCancel(services.WithRunID(context.WithoutCancel(ctx), runID))
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	logging.WithContext(runCtx, m.logger).Info("import run accepted",
		logging.String("manifest", req.ManifestPath),
		logging.Int("records", len(records)),
		logging.Int("eligible", len(eligible)),
		logging.Int("skipped", skipped),
	)
	opts := importer.Options{
		OutputDir:    outputDir,
		Concurrency:  concurrency,
		AddMetadata:  req.AddMetadata,
		MergeOverlay: req.MergeOverlay,
	}
	go m.run(runCtx, eligible, skipped, opts, done)

	return StartResult{
		Status:    ledger.StatusRunning,
		OutputDir: outputDir,
		RunID:     runID,
		Total:     len(eligible),
		Skipped:   skipped,
	}, nil, nil
}

func (m *Manager) run(ctx context.Context, records []manifest.Record, skipped int, opts importer.Options, done chan struct{}) {
	defer close(done)

	// Imports start without waiting on the notifier; completion is published
	// only after the start event so subscribers see them in order.
	announced := make(chan struct{})
	go func() {
		defer close(announced)
		m.notifyRunStarted(ctx, len(records), skipped)
	}()

	summary := m.pipeline.Run(ctx, records, opts)
	if ctx.Err() != nil {
		logging.WithContext(ctx, m.logger).Info("import run cancelled",
			logging.Int("downloaded", summary.Downloaded),
			logging.Int("failed", summary.Failed),
		)
		return
	}
	m.progress.SetStatus(ledger.StatusDone)
	<-announced
	m.notifyRunCompleted(ctx, summary)
}

// Pause closes the gate so no further item starts. In-flight items finish.
// It is a no-op unless a run is running.
func (m *Manager) Pause() ledger.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.progress.Status() == ledger.StatusRunning {
		m.gate.Close()
		m.progress.Transition(ledger.StatusRunning, ledger.StatusPaused)
	}
	return m.progress.Status()
}

// Resume reopens the gate, releasing every waiting item. It is a no-op unless
// the run is paused.
func (m *Manager) Resume() ledger.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.progress.Transition(ledger.StatusPaused, ledger.StatusRunning) {
		m.gate.Open()
	}
	return m.progress.Status()
}

// Restart stops the active run, clears state, and deletes the files in the
// output directory: outputDir when given, otherwise the last run's directory.
func (m *Manager) Restart(ctx context.Context, outputDir string) (ledger.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := m.outputDir
	if outputDir != "" {
		resolved, err := ResolveOutputDir(outputDir, m.cfg.Paths.DownloadsDir, m.cfg.Paths.AllowedRoot)
		if err != nil {
			return m.progress.Status(), err
		}
		target = resolved
	}

	m.stopLocked()
	m.resetLocked()

	removed, err := fileutil.ClearDir(target)
	logger := logging.WithContext(ctx, m.logger)
	if err != nil {
		logging.WarnWithContext(logger, "output directory only partially cleared", "restart_cleanup_failed",
			logging.String("output_dir", target),
			logging.Int("removed", removed),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the output directory"),
			logging.String(logging.FieldImpact, "stale files may be skipped by the next run"),
		)
		return ledger.StatusIdle, fmt.Errorf("clear output directory: %w", err)
	}
	logger.Info("import state reset", logging.String("output_dir", target), logging.Int("removed", removed))
	return ledger.StatusIdle, nil
}

// Cancel stops the active run and clears state without touching files.
func (m *Manager) Cancel(ctx context.Context) ledger.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	m.resetLocked()
	logging.WithContext(ctx, m.logger).Info("import state cleared")
	return ledger.StatusIdle
}

// Wait blocks until the current run, if any, has finished.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stopLocked cancels the run and waits for every admitted item to finish.
func (m *Manager) stopLocked() {
	if m.cancel == nil {
		return
	}
	started := time.Now()
	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil
	m.logger.Debug("import run stopped", logging.Duration("wait", time.Since(started)))
}

func (m *Manager) resetLocked() {
	m.gate.Close()
	m.progress.Reset()
	m.downloads.Reset()
	m.failures.Reset()
	m.lastErr = nil
}

// LastError returns the error from the most recent rejected start, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// IsAlreadyRunning reports whether err rejects a start because a run is active.
func IsAlreadyRunning(err error) bool {
	var target *AlreadyRunningError
	return errors.As(err, &target)
}

// IsInvalidOutputPath reports whether err rejects an unsafe output root.
func IsInvalidOutputPath(err error) bool {
	var target *InvalidOutputPathError
	return errors.As(err, &target)
}
