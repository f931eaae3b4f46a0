package workflow

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"memento/internal/config"
	"memento/internal/fileutil"
	"memento/internal/manifest"
)

// ResolveOutputDir returns the absolute output root for a run. An empty
// request selects defaultDir. Any other path is expanded, cleaned and
// symlink-resolved along its existing prefix, and must land inside
// allowedRoot.
func ResolveOutputDir(requested, defaultDir, allowedRoot string) (string, error) {
	if strings.TrimSpace(requested) == "" {
		return defaultDir, nil
	}
	expanded, err := config.ExpandPath(strings.TrimSpace(requested))
	if err != nil {
		return "", &InvalidOutputPathError{Path: requested, Reason: err.Error()}
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", &InvalidOutputPathError{Path: requested, Reason: err.Error()}
	}
	resolved, err := resolveExisting(abs)
	if err != nil {
		return "", &InvalidOutputPathError{Path: requested, Reason: err.Error()}
	}
	root, err := resolveExisting(filepath.Clean(allowedRoot))
	if err != nil {
		return "", &InvalidOutputPathError{Path: requested, Root: allowedRoot, Reason: err.Error()}
	}
	if !within(root, resolved) {
		return "", &InvalidOutputPathError{Path: requested, Root: root}
	}
	return resolved, nil
}

// resolveExisting evaluates symlinks on the longest existing prefix of path
// and re-appends the components that do not exist yet.
func resolveExisting(path string) (string, error) {
	var pending []string
	current := path
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(pending) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, pending[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return path, nil
		}
		pending = append(pending, filepath.Base(current))
		current = parent
	}
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)))
}

// selectEligible drops records whose filename repeats an earlier record and,
// with skipExisting, records already present in outputDir. Both count as
// skipped.
func selectEligible(records []manifest.Record, outputDir string, skipExisting bool) ([]manifest.Record, int) {
	eligible := make([]manifest.Record, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	skipped := 0
	for _, record := range records {
		name := record.Filename()
		if _, dup := seen[name]; dup {
			skipped++
			continue
		}
		seen[name] = struct{}{}
		if skipExisting && fileutil.Exists(filepath.Join(outputDir, name)) {
			skipped++
			continue
		}
		eligible = append(eligible, record)
	}
	return eligible, skipped
}
