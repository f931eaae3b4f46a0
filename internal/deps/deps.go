package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Requirement defines an external dependency Memento relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// executablePath is swapped in tests.
var executablePath = os.Executable

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if resolved, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Command = resolved
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// ResolveFFmpeg reports the ffmpeg binary the pipeline will execute.
//
// Lookup order: the configured binary, an ffmpeg executable sitting in a bin/
// directory next to the running program, then "ffmpeg" from PATH.
func ResolveFFmpeg(configured string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Used for video overlays and metadata",
		Optional:    true,
	}

	if configured = strings.TrimSpace(configured); configured != "" {
		if resolved, err := exec.LookPath(configured); err == nil {
			result.Command = resolved
			result.Available = true
			return result
		}
		result.Command = configured
		result.Detail = fmt.Sprintf("configured binary %q not found", configured)
		return result
	}

	if candidate, ok := sidecarCandidate(); ok {
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			result.Command = candidate
			result.Available = true
			return result
		}
	}

	name := executableName("ffmpeg")
	if resolved, err := exec.LookPath(name); err == nil {
		result.Command = resolved
		result.Available = true
		return result
	}

	result.Command = name
	result.Detail = fmt.Sprintf("binary %q not found", name)
	return result
}

func sidecarCandidate() (string, bool) {
	exe, err := executablePath()
	if err != nil || exe == "" {
		return "", false
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "bin", executableName("ffmpeg")), true
}

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
