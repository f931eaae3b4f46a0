package client_test

import (
	"context"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"memento/internal/api"
	"memento/internal/client"
	"memento/internal/daemon"
	"memento/internal/ledger"
	"memento/internal/logging"
	"memento/internal/testsupport"
	"memento/internal/workflow"
)

func TestBaseURL(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:8787":        "http://127.0.0.1:8787",
		":8787":                 "http://127.0.0.1:8787",
		"0.0.0.0:9000":          "http://127.0.0.1:9000",
		"http://example.com:80": "http://example.com:80",
		"localhost":             "http://localhost",
	}
	for in, want := range tests {
		if got := client.BaseURL(in); got != want {
			t.Errorf("BaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"an import is already running","kind":"already_running"}`))
	}))
	defer server.Close()

	c := client.New(server.URL, "tok")
	_, err := c.Pause(context.Background())
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("expected APIError 409, got %v", err)
	}
	if !client.IsKind(err, api.KindAlreadyRunning) {
		t.Fatalf("expected already_running kind, got %+v", apiErr)
	}
}

func TestConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := client.New(url, "").Status(context.Background())
	if err == nil {
		t.Fatal("expected error for a closed daemon")
	}
}

func startDaemon(t *testing.T) (*client.Client, *httptest.Server, string) {
	t.Helper()
	jpegData := testsupport.JPEG(t, 4, 4, color.White)
	assets := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(jpegData)
	}))
	t.Cleanup(assets.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("secret"))
	d, err := daemon.New(cfg, logging.NewNop(), workflow.NewManager(cfg, logging.NewNop()))
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	baseURL := client.BaseURL(d.Addr())
	return client.New(baseURL, "secret"), assets, baseURL
}

func TestClientAgainstDaemon(t *testing.T) {
	c, assets, _ := startDaemon(t)
	ctx := context.Background()

	health, err := c.Health(ctx)
	if err != nil || len(health.Components) == 0 {
		t.Fatalf("health: %+v %v", health, err)
	}

	records := []testsupport.ManifestRecord{
		{Date: "2024-03-05 14:07:00 UTC", MediaType: "Image", URL: assets.URL + "/a.jpg"},
		{Date: "2024-03-05 14:07:01 UTC", MediaType: "Image", URL: assets.URL + "/b.jpg"},
	}
	manifestPath := testsupport.WriteManifest(t, t.TempDir(), records...)
	off := false
	run, err := c.Run(ctx, manifestPath, client.RunOptions{Concurrency: 2, AddMetadata: &off})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Total != 2 {
		t.Fatalf("unexpected run %+v", run)
	}

	watchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var last ledger.Snapshot
	err = c.Watch(watchCtx, func(snap ledger.Snapshot) error {
		last = snap
		if snap.Status == ledger.StatusDone {
			return client.ErrStopWatch
		}
		return nil
	})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if last.Downloaded != 2 {
		t.Fatalf("expected both downloads, got %+v", last)
	}

	page, err := c.Downloads(ctx, 0, 10)
	if err != nil || page.Total != 2 {
		t.Fatalf("downloads: %+v %v", page, err)
	}
	failures, err := c.Failures(ctx)
	if err != nil || len(failures) != 0 {
		t.Fatalf("failures: %v %v", failures, err)
	}
	status, err := c.Status(ctx)
	if err != nil || !status.Running || status.Progress.Status != ledger.StatusDone {
		t.Fatalf("status: %+v %v", status, err)
	}

	restart, err := c.Restart(ctx, "")
	if err != nil || restart.Status != ledger.StatusIdle {
		t.Fatalf("restart: %+v %v", restart, err)
	}
	progress, err := c.Progress(ctx)
	if err != nil || progress.Total != 0 {
		t.Fatalf("progress after restart: %+v %v", progress, err)
	}
}

func TestClientRejectsBadManifest(t *testing.T) {
	c, _, _ := startDaemon(t)
	_, err := c.Run(context.Background(), testsupport.WriteManifest(t, t.TempDir(), testsupport.ManifestRecord{
		Date: "not a date", MediaType: "Image", URL: "http://example.invalid/x",
	}), client.RunOptions{})
	if !client.IsKind(err, api.KindInvalidManifest) {
		t.Fatalf("expected invalid manifest error, got %v", err)
	}
}

func TestWatchRequiresToken(t *testing.T) {
	_, _, baseURL := startDaemon(t)
	err := client.New(baseURL, "").Watch(context.Background(), func(ledger.Snapshot) error {
		return client.ErrStopWatch
	})
	if !client.IsKind(err, api.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
