package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"memento/internal/api"
	"memento/internal/ledger"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

var titleCaser = cases.Title(language.English)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func renderValueLine(label, value string) string {
	return fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", value)
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// runStatusKind maps a run status onto a display severity.
func runStatusKind(status ledger.Status, failed int) statusKind {
	switch status {
	case ledger.StatusRunning:
		return statusInfo
	case ledger.StatusPaused:
		return statusWarn
	case ledger.StatusDone:
		if failed > 0 {
			return statusWarn
		}
		return statusOK
	default:
		return statusInfo
	}
}

func statusLabel(status ledger.Status) string {
	if status == "" {
		return "Unknown"
	}
	return titleCaser.String(string(status))
}

// progressLines renders a progress snapshot as status lines.
func progressLines(snap ledger.Snapshot, colorize bool) []string {
	lines := []string{
		renderStatusLine("Run", runStatusKind(snap.Status, snap.Failed), statusLabel(snap.Status), colorize),
	}
	if snap.RunID != "" {
		lines = append(lines, renderValueLine("Run ID", snap.RunID))
	}
	lines = append(lines,
		renderValueLine("Items", fmt.Sprintf("%d/%d processed (%d downloaded, %d failed, %d skipped)",
			snap.Processed(), snap.Total, snap.Downloaded, snap.Failed, snap.Skipped)),
		renderValueLine("Transferred", formatTransfer(snap.Bytes, snap.BytesPerSecond)),
	)
	if snap.ETA != nil {
		lines = append(lines, renderValueLine("ETA", *snap.ETA))
	}
	return lines
}

// progressSummary is the single-line form used while watching a run.
func progressSummary(snap ledger.Snapshot) string {
	summary := fmt.Sprintf("%s %d/%d downloaded=%d failed=%d skipped=%d %s",
		statusLabel(snap.Status), snap.Processed(), snap.Total,
		snap.Downloaded, snap.Failed, snap.Skipped, formatTransfer(snap.Bytes, snap.BytesPerSecond))
	if snap.ETA != nil {
		summary += " eta " + *snap.ETA
	}
	return summary
}

func formatTransfer(bytes int64, rate float64) string {
	text := humanize.Bytes(uint64(max(bytes, 0)))
	if rate > 0 {
		text += fmt.Sprintf(" at %s/s", humanize.Bytes(uint64(rate)))
	}
	return text
}

func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps))
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	return lines
}

func healthLines(components []api.ComponentHealth, colorize bool) []string {
	lines := make([]string, 0, len(components))
	for _, component := range components {
		if component.Ready {
			lines = append(lines, renderStatusLine(component.Name, statusOK, component.Detail, colorize))
			continue
		}
		lines = append(lines, renderStatusLine(component.Name, statusError, component.Detail, colorize))
	}
	return lines
}
