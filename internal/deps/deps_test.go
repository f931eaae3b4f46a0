package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckBinaries(t *testing.T) {
	present := filepath.Join(t.TempDir(), "present")
	writeStub(t, present)
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("expected blank command detail, got %q", results[2].Detail)
	}
}

func TestResolveFFmpegPrefersConfigured(t *testing.T) {
	configured := filepath.Join(t.TempDir(), "custom-ffmpeg")
	writeStub(t, configured)

	status := ResolveFFmpeg(configured)
	if !status.Available || status.Command != configured {
		t.Fatalf("expected configured binary, got %#v", status)
	}
}

func TestResolveFFmpegMissingConfigured(t *testing.T) {
	status := ResolveFFmpeg("/definitely/not/here/ffmpeg")
	if status.Available {
		t.Fatalf("expected configured binary to be unavailable, got %#v", status)
	}
	if status.Detail == "" {
		t.Fatal("expected detail for missing configured binary")
	}
}

func TestResolveFFmpegSidecar(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "memento")
	writeStub(t, exe)
	sidecar := filepath.Join(dir, "bin", executableName("ffmpeg"))
	writeStub(t, sidecar)

	original := executablePath
	executablePath = func() (string, error) { return exe, nil }
	t.Cleanup(func() { executablePath = original })
	t.Setenv("PATH", t.TempDir())

	status := ResolveFFmpeg("")
	if !status.Available {
		t.Fatalf("expected sidecar ffmpeg to be available, got %#v", status)
	}
	resolvedSidecar, _ := filepath.EvalSymlinks(sidecar)
	if status.Command != sidecar && status.Command != resolvedSidecar {
		t.Fatalf("expected sidecar path %q, got %q", sidecar, status.Command)
	}
}

func TestResolveFFmpegFallsBackToPath(t *testing.T) {
	pathDir := t.TempDir()
	writeStub(t, filepath.Join(pathDir, executableName("ffmpeg")))

	original := executablePath
	executablePath = func() (string, error) { return filepath.Join(t.TempDir(), "memento"), nil }
	t.Cleanup(func() { executablePath = original })
	t.Setenv("PATH", pathDir)

	status := ResolveFFmpeg("")
	if !status.Available {
		t.Fatalf("expected PATH ffmpeg to be available, got %#v", status)
	}
	if filepath.Dir(status.Command) != pathDir {
		t.Fatalf("expected ffmpeg from PATH dir %q, got %q", pathDir, status.Command)
	}
}

func TestResolveFFmpegUnavailable(t *testing.T) {
	original := executablePath
	executablePath = func() (string, error) { return filepath.Join(t.TempDir(), "memento"), nil }
	t.Cleanup(func() { executablePath = original })
	t.Setenv("PATH", t.TempDir())

	status := ResolveFFmpeg("")
	if status.Available {
		t.Fatalf("expected ffmpeg to be unavailable, got %#v", status)
	}
	if status.Command != executableName("ffmpeg") {
		t.Fatalf("expected bare command name, got %q", status.Command)
	}
}
