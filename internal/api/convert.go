package api

import (
	"sort"

	"memento/internal/deps"
	"memento/internal/workflow"
)

// FromStartResult converts a workflow start result into its wire form.
func FromStartResult(result workflow.StartResult, manifestPath string) RunResponse {
	return RunResponse{
		Status:       result.Status,
		RunID:        result.RunID,
		OutputDir:    result.OutputDir,
		ManifestPath: manifestPath,
		Total:        result.Total,
		Skipped:      result.Skipped,
	}
}

// FromHealth returns component health sorted by name.
func FromHealth(components []workflow.ComponentHealth) []ComponentHealth {
	out := make([]ComponentHealth, 0, len(components))
	for _, c := range components {
		out = append(out, ComponentHealth{Name: c.Name, Ready: c.Ready, Detail: c.Detail})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FromDependencies converts dependency checks, keeping their order.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}

// HealthStatus summarizes components as "ok" or "degraded".
func HealthStatus(components []ComponentHealth) string {
	for _, c := range components {
		if !c.Ready {
			return "degraded"
		}
	}
	return "ok"
}
