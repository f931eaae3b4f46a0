package workflow

import (
	"memento/internal/deps"
	"memento/internal/preflight"
)

// ComponentHealth summarizes the readiness of one runtime dependency.
type ComponentHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

func healthyComponent(name string) ComponentHealth {
	return ComponentHealth{Name: name, Ready: true}
}

func unhealthyComponent(name, detail string) ComponentHealth {
	return ComponentHealth{Name: name, Ready: false, Detail: detail}
}

// Health reports whether ffmpeg and the working directories are usable.
// ffmpeg is optional: without it video overlays and tags are skipped.
func (m *Manager) Health() []ComponentHealth {
	out := make([]ComponentHealth, 0, 3)
	if status := deps.ResolveFFmpeg(m.cfg.FFmpegBinary()); status.Available {
		out = append(out, healthyComponent("ffmpeg"))
	} else {
		out = append(out, unhealthyComponent("ffmpeg", status.Detail))
	}
	for _, result := range preflight.CheckDirectories(m.cfg) {
		if result.Passed {
			out = append(out, healthyComponent(result.Name))
		} else {
			out = append(out, unhealthyComponent(result.Name, result.Detail))
		}
	}
	return out
}
