package api

import "memento/internal/ledger"

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Error kinds let clients distinguish rejections without parsing messages.
const (
	KindAlreadyRunning    = "already_running"
	KindInvalidOutputPath = "invalid_output_path"
	KindInvalidManifest   = "invalid_manifest"
	KindBadRequest        = "bad_request"
	KindUnauthorized      = "unauthorized"
)

// ComponentHealth mirrors readiness reporting for runtime components.
type ComponentHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components []ComponentHealth `json:"components"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	LockFilePath string             `json:"lock_file_path"`
	OutputDir    string             `json:"output_dir,omitempty"`
	LastError    string             `json:"last_error,omitempty"`
	Progress     ledger.Snapshot    `json:"progress"`
	Health       []ComponentHealth  `json:"health"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// RunResponse describes a run accepted by POST /api/run.
type RunResponse struct {
	Status       ledger.Status `json:"status"`
	RunID        string        `json:"run_id"`
	OutputDir    string        `json:"output_dir"`
	ManifestPath string        `json:"manifest_path"`
	Total        int           `json:"total"`
	Skipped      int           `json:"skipped"`
}

// ControlResponse reports the run status after a control request.
type ControlResponse struct {
	Status ledger.Status `json:"status"`
}

// NotifyResponse reports the outcome of a test notification.
type NotifyResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// DownloadsResponse is one page of the downloads ledger.
type DownloadsResponse = ledger.Page

// FailuresResponse is the ordered filename to reason mapping.
type FailuresResponse = ledger.FailureList

// ProgressFrame is one message on the progress stream.
type ProgressFrame struct {
	Type     string          `json:"type"`
	Progress ledger.Snapshot `json:"progress"`
}

// FrameProgress is the only frame type currently sent.
const FrameProgress = "progress"
