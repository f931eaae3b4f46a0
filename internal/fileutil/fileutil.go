package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// WriteFileAtomic writes data to a temporary sibling of path and renames it
// into place so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	_, err := writeAtomic(path, mode, func(w io.Writer) (int64, error) {
		n, err := w.Write(data)
		return int64(n), err
	})
	return err
}

// WriteReaderAtomic streams r into path through a temporary sibling and
// returns the number of bytes written.
func WriteReaderAtomic(path string, r io.Reader, mode os.FileMode) (int64, error) {
	return writeAtomic(path, mode, func(w io.Writer) (int64, error) {
		return io.Copy(w, r)
	})
}

func writeAtomic(path string, mode os.FileMode, fill func(io.Writer) (int64, error)) (int64, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	written, err := fill(tmp)
	if err != nil {
		_ = tmp.Close()
		cleanup()
		return 0, fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return 0, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return 0, fmt.Errorf("rename into place: %w", err)
	}
	return written, nil
}

// SetTimes sets both the access and modification time of path to ts.
func SetTimes(path string, ts time.Time) error {
	if err := os.Chtimes(path, ts, ts); err != nil {
		return fmt.Errorf("set file times: %w", err)
	}
	return nil
}

// Exists reports whether path names an existing filesystem entry.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ClearDir removes the regular files directly inside dir. Subdirectories and
// other entry types are left untouched. A missing directory is not an error.
func ClearDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read directory: %w", err)
	}
	removed := 0
	var errs []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
