// Package client talks to a running memento daemon over its HTTP API. It is
// used by the CLI for every command that controls or inspects a run.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"memento/internal/api"
	"memento/internal/config"
	"memento/internal/ledger"
)

// DefaultTimeout bounds every non-streaming request.
const DefaultTimeout = 30 * time.Second

// Client is an HTTP client for the daemon API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the daemon at baseURL (for example
// "http://127.0.0.1:8787").
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// FromConfig creates a client for the daemon described by cfg.
func FromConfig(cfg *config.Config) *Client {
	return New(BaseURL(cfg.Paths.APIBind), cfg.Paths.APIToken)
}

// BaseURL turns a listen address into a dialable URL. Wildcard hosts map to
// the loopback address.
func BaseURL(bind string) string {
	bind = strings.TrimSpace(bind)
	if strings.HasPrefix(bind, "http://") || strings.HasPrefix(bind, "https://") {
		return bind
	}
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return "http://" + bind
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned HTTP %d", e.StatusCode)
	}
	return e.Message
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// RunOptions are the query parameters of a run request. Nil pointers leave
// the daemon's configured defaults in place.
type RunOptions struct {
	Concurrency  int
	AddMetadata  *bool
	SkipExisting *bool
	MergeOverlay *bool
	OutputDir    string
}

func (o RunOptions) query() url.Values {
	q := url.Values{}
	if o.Concurrency > 0 {
		q.Set("concurrent", strconv.Itoa(o.Concurrency))
	}
	setBool := func(name string, v *bool) {
		if v != nil {
			q.Set(name, strconv.FormatBool(*v))
		}
	}
	setBool("add_exif", o.AddMetadata)
	setBool("skip_existing", o.SkipExisting)
	setBool("merge_overlay", o.MergeOverlay)
	if o.OutputDir != "" {
		q.Set("output_dir", o.OutputDir)
	}
	return q
}

// Health returns daemon component health. It does not require a token.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var out api.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, "", &out)
	return out, err
}

// Status returns the daemon status.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, "", &out)
	return out, err
}

// Run uploads the manifest at path and starts an import.
func (c *Client) Run(ctx context.Context, manifestPath string, opts RunOptions) (api.RunResponse, error) {
	var out api.RunResponse
	file, err := os.Open(manifestPath)
	if err != nil {
		return out, fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(manifestPath))
	if err != nil {
		return out, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return out, fmt.Errorf("read manifest: %w", err)
	}
	if err := writer.Close(); err != nil {
		return out, fmt.Errorf("finish form: %w", err)
	}

	err = c.do(ctx, http.MethodPost, "/api/run", opts.query(), &body, writer.FormDataContentType(), &out)
	return out, err
}

// Pause pauses the active run.
func (c *Client) Pause(ctx context.Context) (api.ControlResponse, error) {
	var out api.ControlResponse
	err := c.do(ctx, http.MethodPost, "/api/pause", nil, nil, "", &out)
	return out, err
}

// Resume resumes a paused run.
func (c *Client) Resume(ctx context.Context) (api.ControlResponse, error) {
	var out api.ControlResponse
	err := c.do(ctx, http.MethodPost, "/api/resume", nil, nil, "", &out)
	return out, err
}

// Restart stops the active run and clears outputDir, or the last run's
// directory when outputDir is empty.
func (c *Client) Restart(ctx context.Context, outputDir string) (api.ControlResponse, error) {
	var out api.ControlResponse
	q := url.Values{}
	if outputDir != "" {
		q.Set("output_dir", outputDir)
	}
	err := c.do(ctx, http.MethodPost, "/api/restart", q, nil, "", &out)
	return out, err
}

// Progress returns the current progress snapshot.
func (c *Client) Progress(ctx context.Context) (ledger.Snapshot, error) {
	var out ledger.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/progress", nil, nil, "", &out)
	return out, err
}

// Downloads returns one page of the downloads ledger.
func (c *Client) Downloads(ctx context.Context, offset, limit int) (api.DownloadsResponse, error) {
	var out api.DownloadsResponse
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	err := c.do(ctx, http.MethodGet, "/api/downloads", q, nil, "", &out)
	return out, err
}

// Failures returns the failure ledger in recording order.
func (c *Client) Failures(ctx context.Context) (api.FailuresResponse, error) {
	var out api.FailuresResponse
	err := c.do(ctx, http.MethodGet, "/api/failures", nil, nil, "", &out)
	return out, err
}

// TestNotification asks the daemon to publish a test notification.
func (c *Client) TestNotification(ctx context.Context) (api.NotifyResponse, error) {
	var out api.NotifyResponse
	err := c.do(ctx, http.MethodPost, "/api/notify/test", nil, nil, "", &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, result any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.authorize(req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapDialError(err, c.baseURL)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload api.ErrorResponse
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Kind = payload.Kind
			apiErr.Message = payload.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) authorize(h http.Header) {
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
}

func wrapDialError(err error, baseURL string) error {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: %s refused the connection; start the daemon with `memento start`", baseURL)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}
