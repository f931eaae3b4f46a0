package workflow

import (
	"fmt"

	"memento/internal/config"
	"memento/internal/ledger"
)

// StartRequest carries the parameters of a new run. An empty OutputDir
// selects the configured downloads directory.
type StartRequest struct {
	ManifestPath string
	OutputDir    string
	Concurrency  int
	AddMetadata  bool
	SkipExisting bool
	MergeOverlay bool
}

// DefaultStartRequest returns a request seeded from the [import] config section.
func DefaultStartRequest(cfg *config.Config, manifestPath string) StartRequest {
	return StartRequest{
		ManifestPath: manifestPath,
		Concurrency:  cfg.Import.Concurrency,
		AddMetadata:  cfg.Import.AddMetadata,
		SkipExisting: cfg.Import.SkipExisting,
		MergeOverlay: cfg.Import.MergeOverlay,
	}
}

// StartResult describes an accepted run.
type StartResult struct {
	Status    ledger.Status `json:"status"`
	OutputDir string        `json:"output_dir"`
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`
	Skipped   int           `json:"skipped"`
}

// AlreadyRunningError rejects a start while another run is running or paused.
type AlreadyRunningError struct {
	RunID  string
	Status ledger.Status
}

func (e *AlreadyRunningError) Error() string {
	if e.RunID == "" {
		return fmt.Sprintf("an import is already %s", e.Status)
	}
	return fmt.Sprintf("an import is already %s (run %s)", e.Status, e.RunID)
}

// InvalidOutputPathError rejects output roots outside the allowed tree.
type InvalidOutputPathError struct {
	Path   string
	Root   string
	Reason string
}

func (e *InvalidOutputPathError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid output path %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("invalid output path %q: must be inside %s", e.Path, e.Root)
}
