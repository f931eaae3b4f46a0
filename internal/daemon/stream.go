package daemon

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"memento/internal/api"
	"memento/internal/logging"
)

type streamOptions struct {
	// minInterval coalesces bursts of progress changes into one frame.
	minInterval  time.Duration
	pingInterval time.Duration
	writeWait    time.Duration
}

func defaultStreamOptions() streamOptions {
	return streamOptions{
		minInterval:  250 * time.Millisecond,
		pingInterval: 30 * time.Second,
		writeWait:    10 * time.Second,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The stream is read-only and guarded by the bearer token.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleProgressStream upgrades to a websocket and pushes a progress frame
// immediately and after every change until either side goes away.
func (s *apiServer) handleProgressStream(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	logger := logging.WithContext(ctx, s.log())
	logger.Debug("progress stream opened", logging.String("remote", c.RealIP()))

	// Clients never send data; reading surfaces close frames and dead peers.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	err = s.pushProgress(ctx, conn)
	if err != nil {
		logger.Debug("progress stream closed", logging.Error(err))
	}
	return nil
}

func (s *apiServer) pushProgress(ctx context.Context, conn *websocket.Conn) error {
	ping := time.NewTicker(s.stream.pingInterval)
	defer ping.Stop()

	for {
		updated := s.daemon.workflow.ProgressUpdated()
		frame := api.ProgressFrame{Type: api.FrameProgress, Progress: s.daemon.workflow.Progress()}
		_ = conn.SetWriteDeadline(time.Now().Add(s.stream.writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			return err
		}

	wait:
		for {
			select {
			case <-updated:
				break wait
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.stream.writeWait)); err != nil {
					return err
				}
			case <-s.closing:
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "daemon shutting down")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.stream.writeWait))
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if s.stream.minInterval > 0 {
			timer := time.NewTimer(s.stream.minInterval)
			select {
			case <-timer.C:
			case <-s.closing:
				timer.Stop()
				return nil
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}
}
