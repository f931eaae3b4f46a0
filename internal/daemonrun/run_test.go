package daemonrun

import (
	"os"
	"path/filepath"
	"testing"

	"memento/internal/testsupport"
)

func TestPIDFileRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := writePIDFile(filepath.Join(cfg.Paths.LogDir, PIDFileName)); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, err := ReadPID(cfg)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("expected pid %d, got %d", os.Getpid(), pid)
	}
}

func TestReadPIDMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := ReadPID(cfg); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestPreflightKey(t *testing.T) {
	if got := preflightKey("Downloads directory"); got != "downloads_directory_ok" {
		t.Fatalf("unexpected key %q", got)
	}
}
