package main

import (
	"strings"
	"testing"

	"memento/internal/api"
	"memento/internal/ledger"
)

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Daemon", statusOK, "Running", false)
	if !strings.HasPrefix(line, "  Daemon:") || !strings.HasSuffix(line, "[OK] Running") {
		t.Fatalf("unexpected line %q", line)
	}
	colored := renderStatusLine("Daemon", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, "[ERROR]"+ansiReset) {
		t.Fatalf("unexpected colored line %q", colored)
	}
}

func TestRunStatusKind(t *testing.T) {
	tests := []struct {
		status ledger.Status
		failed int
		want   statusKind
	}{
		{ledger.StatusIdle, 0, statusInfo},
		{ledger.StatusRunning, 3, statusInfo},
		{ledger.StatusPaused, 0, statusWarn},
		{ledger.StatusDone, 0, statusOK},
		{ledger.StatusDone, 1, statusWarn},
	}
	for _, tt := range tests {
		if got := runStatusKind(tt.status, tt.failed); got != tt.want {
			t.Errorf("runStatusKind(%s, %d) = %d, want %d", tt.status, tt.failed, got, tt.want)
		}
	}
}

func TestProgressSummary(t *testing.T) {
	eta := "00:01:05"
	snap := ledger.Snapshot{
		Status:         ledger.StatusRunning,
		Total:          10,
		Downloaded:     4,
		Failed:         1,
		Skipped:        2,
		Bytes:          2_500_000,
		BytesPerSecond: 1_000_000,
		ETA:            &eta,
	}
	got := progressSummary(snap)
	for _, want := range []string{"Running 5/10", "downloaded=4", "failed=1", "skipped=2", "2.5 MB at 1.0 MB/s", "eta 00:01:05"} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary %q missing %q", got, want)
		}
	}
	if statusLabel("") != "Unknown" {
		t.Fatalf("expected Unknown for empty status")
	}
}

func TestDependencyLines(t *testing.T) {
	lines := dependencyLines([]api.DependencyStatus{
		{Name: "FFmpeg", Command: "/usr/bin/ffmpeg", Available: true},
		{Name: "FFmpeg", Optional: true},
		{Name: "Other", Detail: "missing"},
	}, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK] Ready (command: /usr/bin/ffmpeg)") {
		t.Fatalf("unexpected ready line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARN] not available") {
		t.Fatalf("unexpected optional line %q", lines[1])
	}
	if !strings.Contains(lines[2], "[ERROR] missing") {
		t.Fatalf("unexpected required line %q", lines[2])
	}
}

func TestDownloadRowsNumberFromOffset(t *testing.T) {
	rows := downloadRows(ledger.Page{
		Offset: 5,
		Items:  []ledger.DownloadedEntry{{Filename: "a.jpg", MediaType: "Image"}},
	})
	if len(rows) != 1 || rows[0][0] != "6" || rows[0][1] != "a.jpg" {
		t.Fatalf("unexpected rows %v", rows)
	}
}
