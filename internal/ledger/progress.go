package ledger

import (
	"fmt"
	"sync"
	"time"
)

// Status is the lifecycle state of the single active import run.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusDone    Status = "done"
)

// Active reports whether a run is in flight (running or paused).
func (s Status) Active() bool {
	return s == StatusRunning || s == StatusPaused
}

// Snapshot is a point-in-time copy of run progress.
type Snapshot struct {
	Status         Status     `json:"status"`
	RunID          string     `json:"run_id,omitempty"`
	Total          int        `json:"total"`
	Downloaded     int        `json:"downloaded"`
	Failed         int        `json:"failed"`
	Skipped        int        `json:"skipped"`
	Bytes          int64      `json:"bytes"`
	BytesPerSecond float64    `json:"bytes_per_second"`
	ETA            *string    `json:"eta"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// Processed returns the number of items with a final outcome.
func (s Snapshot) Processed() int {
	return s.Downloaded + s.Failed
}

// Progress tracks counters for the active run.
type Progress struct {
	mu         sync.Mutex
	status     Status
	runID      string
	total      int
	downloaded int
	failed     int
	skipped    int
	bytes      int64
	started    time.Time
	finished   time.Time
	eta        *string
	changed    chan struct{}
	now        func() time.Time
}

// NewProgress returns an idle progress tracker.
func NewProgress() *Progress {
	return &Progress{status: StatusIdle, changed: make(chan struct{}), now: time.Now}
}

// Reset returns the tracker to {idle, 0, 0, eta: null}.
func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLocked()
	p.status = StatusIdle
	p.notifyLocked()
}

// Begin zeroes the counters and marks a new run as running.
func (p *Progress) Begin(runID string, total, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLocked()
	p.status = StatusRunning
	p.runID = runID
	p.total = total
	p.skipped = skipped
	p.started = p.now()
	p.notifyLocked()
}

func (p *Progress) clearLocked() {
	p.runID = ""
	p.total = 0
	p.downloaded = 0
	p.failed = 0
	p.skipped = 0
	p.bytes = 0
	p.started = time.Time{}
	p.finished = time.Time{}
	p.eta = nil
}

// Status returns the current run status.
func (p *Progress) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// SetStatus overwrites the status.
func (p *Progress) SetStatus(status Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setStatusLocked(status)
}

// Transition moves from one status to another and reports whether the
// current status matched from.
func (p *Progress) Transition(from, to Status) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != from {
		return false
	}
	p.setStatusLocked(to)
	return true
}

func (p *Progress) setStatusLocked(status Status) {
	if p.status == status {
		return
	}
	p.status = status
	if status == StatusDone && p.finished.IsZero() {
		p.finished = p.now()
	}
	p.notifyLocked()
}

// RecordSuccess counts a downloaded item and the bytes it transferred.
func (p *Progress) RecordSuccess(bytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.downloaded++
	p.bytes += bytes
	p.updateETALocked()
	p.notifyLocked()
}

// RecordFailure counts a failed item and any bytes it transferred before failing.
func (p *Progress) RecordFailure(bytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed++
	p.bytes += bytes
	p.updateETALocked()
	p.notifyLocked()
}

// updateETALocked computes elapsed / processed * (total - processed), where
// processed counts failures as well as downloads so a run with failures still
// reaches 00:00:00.
func (p *Progress) updateETALocked() {
	processed := p.downloaded + p.failed
	if processed == 0 || p.started.IsZero() {
		p.eta = nil
		return
	}
	remaining := p.total - processed
	if remaining < 0 {
		remaining = 0
	}
	elapsed := p.now().Sub(p.started)
	perItem := elapsed / time.Duration(processed)
	eta := FormatETA(perItem * time.Duration(remaining))
	p.eta = &eta
}

// Snapshot returns a copy of the current progress.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := Snapshot{
		Status:     p.status,
		RunID:      p.runID,
		Total:      p.total,
		Downloaded: p.downloaded,
		Failed:     p.failed,
		Skipped:    p.skipped,
		Bytes:      p.bytes,
	}
	if p.eta != nil {
		eta := *p.eta
		snap.ETA = &eta
	}
	if !p.started.IsZero() {
		started := p.started
		snap.StartedAt = &started
		end := p.now()
		if !p.finished.IsZero() {
			finished := p.finished
			snap.FinishedAt = &finished
			end = finished
		}
		if elapsed := end.Sub(started).Seconds(); elapsed > 0 {
			snap.BytesPerSecond = float64(p.bytes) / elapsed
		}
	}
	return snap
}

// Updated returns a channel that is closed on the next change.
func (p *Progress) Updated() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changed
}

func (p *Progress) notifyLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}

// FormatETA renders a duration as HH:MM:SS, truncating fractional seconds.
func FormatETA(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := int64(d / time.Second)
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
