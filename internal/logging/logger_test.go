package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"memento/internal/config"
	"memento/internal/logging"
	"memento/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello file", logging.String("kind", "test"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", content, err)
	}
	if record["msg"] != "hello file" {
		t.Fatalf("expected msg field, got %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts field in %v", record)
	}
}

func TestConsoleLoggerFormatsComponentAndRun(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "importer")
	logger.Info("item saved",
		logging.String(logging.FieldRunID, "0123456789abcdef"),
		logging.String("path", "/tmp/a file.jpg"),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO  importer: item saved [run=01234567]") {
		t.Fatalf("unexpected console header: %q", line)
	}
	if !strings.Contains(line, `path="/tmp/a file.jpg"`) {
		t.Fatalf("expected quoted path attribute, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", line)
	}
}

func TestConsoleLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "warn", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("expected info record to be filtered, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn record, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "metadata skipped", "metadata_failed", logging.String(logging.FieldImpact, "file kept without tags"))

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[logging.FieldEventType] != "metadata_failed" {
		t.Fatalf("expected event type, got %v", record[logging.FieldEventType])
	}
	if record[logging.FieldErrorHint] != "check logs for details" {
		t.Fatalf("expected default hint, got %v", record[logging.FieldErrorHint])
	}
	if record[logging.FieldImpact] != "file kept without tags" {
		t.Fatalf("expected caller impact to be preserved, got %v", record[logging.FieldImpact])
	}
}

func TestWithContextAddsRunFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithRunID(context.Background(), "run-1")
	ctx = services.WithItemKey(ctx, "2023-01-01 10:00:00 UTC")
	logging.WithContext(ctx, logger).Info("tagged")

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[logging.FieldRunID] != "run-1" {
		t.Fatalf("expected run id, got %v", record[logging.FieldRunID])
	}
	if record[logging.FieldItemKey] != "2023-01-01 10:00:00 UTC" {
		t.Fatalf("expected item key, got %v", record[logging.FieldItemKey])
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("expected no-op logger to be disabled")
	}
	logger.Error("ignored")
}

func TestBytesAttr(t *testing.T) {
	if got := logging.Bytes("size", 2_500_000).Value.String(); got != "2.5 MB" {
		t.Fatalf("Bytes = %q, want 2.5 MB", got)
	}
	if got := logging.Bytes("size", -1).Value.String(); got != "0 B" {
		t.Fatalf("negative Bytes = %q, want 0 B", got)
	}
}

func TestErrorWithContextKeepsCallerHint(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.ErrorWithContext(logger, "run failed", "run_failed", logging.String(logging.FieldErrorHint, "free disk space"))

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[logging.FieldErrorHint] != "free disk space" || record[logging.FieldEventType] != "run_failed" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record[logging.FieldImpact]; ok {
		t.Fatalf("error records should not get a default impact: %v", record)
	}
}
