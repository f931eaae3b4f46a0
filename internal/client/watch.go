package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"memento/internal/api"
	"memento/internal/ledger"
)

// ErrStopWatch may be returned by a Watch callback to end the stream without
// an error.
var ErrStopWatch = errors.New("stop watching")

// Watch subscribes to the progress stream and calls fn for every snapshot
// until fn returns an error, ctx is cancelled, or the daemon closes the
// stream.
func (c *Client) Watch(ctx context.Context, fn func(ledger.Snapshot) error) error {
	u := c.baseURL + "/api/progress/stream"
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	c.authorize(header)
	conn, resp, err := dialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return &APIError{StatusCode: resp.StatusCode, Kind: api.KindUnauthorized, Message: "unauthorized"}
		}
		return wrapDialError(fmt.Errorf("websocket connect: %w", err), c.baseURL)
	}

	var once sync.Once
	closeConn := func() { once.Do(func() { conn.Close() }) }
	defer closeConn()

	// ReadJSON does not observe ctx; closing the connection unblocks it.
	stop := context.AfterFunc(ctx, closeConn)
	defer stop()

	for {
		var frame api.ProgressFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read progress: %w", err)
		}
		if frame.Type != api.FrameProgress {
			continue
		}
		if err := fn(frame.Progress); err != nil {
			if errors.Is(err, ErrStopWatch) {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return nil
			}
			return err
		}
	}
}
