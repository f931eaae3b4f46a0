package main

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"memento/internal/config"
	"memento/internal/daemon"
	"memento/internal/logging"
	"memento/internal/testsupport"
	"memento/internal/workflow"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	assets     *httptest.Server
	configPath string
}

// setupCLITestEnv starts a daemon on a loopback port and writes a config file
// pointing the CLI at it.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	jpegData := testsupport.JPEG(t, 4, 4, color.White)
	assets := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(jpegData)
	}))
	t.Cleanup(assets.Close)

	cfg := testsupport.NewConfig(t, opts...)
	d, err := daemon.New(cfg, logging.NewNop(), workflow.NewManager(cfg, logging.NewNop()))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	written := *cfg
	written.Paths.APIBind = d.Addr()
	configPath := filepath.Join(cfg.Paths.BaseDir, "config.toml")
	writeTestConfig(t, configPath, &written)

	return &cliTestEnv{cfg: cfg, daemon: d, assets: assets, configPath: configPath}
}

func (e *cliTestEnv) manifest(t *testing.T, paths ...string) string {
	t.Helper()
	records := make([]testsupport.ManifestRecord, 0, len(paths))
	for i, path := range paths {
		records = append(records, testsupport.ManifestRecord{
			Date:      fmt.Sprintf("2024-03-05 14:07:%02d UTC", i),
			MediaType: "Image",
			URL:       e.assets.URL + path,
		})
	}
	return testsupport.WriteManifest(t, t.TempDir(), records...)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
