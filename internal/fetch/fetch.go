// Package fetch downloads remote memory assets.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single asset request.
const DefaultTimeout = 30 * time.Second

// Error describes a failed asset request. StatusCode is zero for transport errors.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch failed: HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Err != nil {
		return "fetch failed: " + e.Err.Error()
	}
	return "fetch failed"
}

func (e *Error) Unwrap() error { return e.Err }

// Asset is a downloaded payload.
type Asset struct {
	Body        []byte
	ContentType string
}

// IsZip reports whether the server labelled the payload as a zip archive.
func (a Asset) IsZip() bool {
	mediaType, _, err := mime.ParseMediaType(a.ContentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(a.ContentType))
	}
	return mediaType == "application/zip" || mediaType == "application/x-zip-compressed"
}

// Client fetches assets over HTTP.
type Client struct {
	http *http.Client
}

// New returns a client using a dedicated http.Client with the given timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// NewWithHTTPClient wraps an existing http.Client.
func NewWithHTTPClient(client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{http: client}
}

// Get downloads url. Cancelling ctx aborts the request.
func (c *Client) Get(ctx context.Context, url string) (Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Asset{}, &Error{URL: url, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Asset{}, &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Asset{}, &Error{URL: url, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Asset{}, &Error{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return Asset{Body: body, ContentType: resp.Header.Get("Content-Type")}, nil
}
