package workflow

import (
	"memento/internal/ledger"
)

// Progress returns the current run snapshot.
func (m *Manager) Progress() ledger.Snapshot {
	return m.progress.Snapshot()
}

// ProgressUpdated returns a channel closed on the next progress change.
func (m *Manager) ProgressUpdated() <-chan struct{} {
	return m.progress.Updated()
}

// Failures returns the failure ledger in recording order.
func (m *Manager) Failures() ledger.FailureList {
	return m.failures.Entries()
}

// Downloads returns a page of the downloads ledger.
func (m *Manager) Downloads(offset, limit int) ledger.Page {
	return m.downloads.Page(offset, limit)
}

// OutputDir returns the directory of the current or most recent run.
func (m *Manager) OutputDir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outputDir
}
