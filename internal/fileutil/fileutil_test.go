package fileutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.jpg")

	if err := WriteFileAtomic(dst, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Fatalf("content mismatch: got %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp file to be renamed away, found %d entries", len(entries))
	}
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(dst, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "new" {
		t.Fatalf("expected overwrite, got %q", got)
	}
}

func TestWriteReaderAtomicCountsBytes(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "manifest.json")
	n, err := WriteReaderAtomic(dst, strings.NewReader(`{"Saved Media":[]}`), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if n != 18 {
		t.Fatalf("expected 18 bytes written, got %d", n)
	}
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "missing", "out.jpg")
	if err := WriteFileAtomic(dst, []byte("x"), 0o644); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}

func TestSetTimes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jpg")
	if err := os.WriteFile(path, bytes.Repeat([]byte{1}, 4), 0o644); err != nil {
		t.Fatal(err)
	}
	ts := time.Date(2019, 7, 4, 12, 30, 0, 0, time.UTC)
	if err := SetTimes(path, ts); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(ts) {
		t.Fatalf("expected mtime %v, got %v", ts, info.ModTime())
	}
}

func TestClearDirRemovesOnlyRegularFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.mp4"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	sub := filepath.Join(dir, "keep")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "nested.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	removed, err := ClearDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed files, got %d", removed)
	}
	if Exists(filepath.Join(dir, "a.jpg")) {
		t.Fatal("expected a.jpg to be removed")
	}
	if !Exists(filepath.Join(sub, "nested.jpg")) {
		t.Fatal("expected nested file to survive")
	}
}

func TestClearDirMissing(t *testing.T) {
	removed, err := ClearDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil || removed != 0 {
		t.Fatalf("expected no-op for missing dir, got %d %v", removed, err)
	}
}
