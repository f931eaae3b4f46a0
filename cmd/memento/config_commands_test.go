package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"memento/internal/testsupport"
)

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "memento", "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, string(data), "[paths]")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when the file exists")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestConfigShowRedactsToken(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("hunter2"))
	path := filepath.Join(cfg.Paths.BaseDir, "config.toml")
	writeTestConfig(t, path, cfg)

	out, _, err := runCLI(t, []string{"config", "show"}, path)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "hunter2") {
		t.Fatalf("token leaked into output:\n%s", out)
	}
	requireContains(t, out, "********")
	requireContains(t, out, cfg.Paths.DownloadsDir)
}

func TestConfigValidate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(cfg.Paths.BaseDir, "config.toml")
	writeTestConfig(t, path, cfg)

	out, _, err := runCLI(t, []string{"config", "validate"}, path)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, path)

	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"loud\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, path); err == nil {
		t.Fatal("expected validation error")
	}
}
