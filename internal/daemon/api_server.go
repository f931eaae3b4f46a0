package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"memento/internal/api"
	"memento/internal/config"
	"memento/internal/fileutil"
	"memento/internal/logging"
	"memento/internal/manifest"
	"memento/internal/services"
	"memento/internal/workflow"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 500
	// uploadField is the multipart field carrying the manifest.
	uploadField = "file"
)

type apiServer struct {
	bind   string
	cfg    *config.Config
	logger *slog.Logger
	daemon *Daemon
	echo   *echo.Echo
	stream streamOptions

	listener  net.Listener
	server    *http.Server
	closing   chan struct{}
	closeOnce sync.Once
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:    strings.TrimSpace(cfg.Paths.APIBind),
		cfg:     cfg,
		logger:  logger,
		daemon:  d,
		stream:  defaultStreamOptions(),
		closing: make(chan struct{}),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(services.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			srv.log().Debug("api request",
				logging.String("method", v.Method),
				logging.String("uri", v.URI),
				logging.Int("status", v.Status),
				logging.Duration("latency", v.Latency),
				logging.String(logging.FieldCorrelationID, v.RequestID),
			)
			return nil
		},
	}))

	e.GET("/health", srv.handleHealth)

	g := e.Group("/api", authMiddleware(strings.TrimSpace(cfg.Paths.APIToken)))
	g.GET("/status", srv.handleStatus)
	g.POST("/run", srv.handleRun)
	g.POST("/pause", srv.handlePause)
	g.POST("/resume", srv.handleResume)
	g.POST("/restart", srv.handleRestart)
	g.GET("/progress", srv.handleProgress)
	g.GET("/progress/stream", srv.handleProgressStream)
	g.GET("/downloads", srv.handleDownloads)
	g.GET("/failures", srv.handleFailures)
	g.POST("/notify/test", srv.handleTestNotification)

	srv.echo = e
	srv.server = &http.Server{
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api listen: paths.api_bind is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.stop()
		case <-s.closing:
		}
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		close(s.closing)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	})
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(c echo.Context) error {
	components := api.FromHealth(s.daemon.workflow.Health())
	return c.JSON(http.StatusOK, api.HealthResponse{
		Status:     api.HealthStatus(components),
		Components: components,
	})
}

func (s *apiServer) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.daemon.Status(c.Request().Context()))
}

func (s *apiServer) handleRun(c echo.Context) error {
	req, err := s.startRequest(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, api.KindBadRequest, err.Error())
	}

	header, err := c.FormFile(uploadField)
	if err != nil {
		return writeError(c, http.StatusBadRequest, api.KindBadRequest, "multipart field \"file\" is required")
	}
	name := filepath.Base(strings.TrimSpace(header.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "memories_history.json"
	}
	src, err := header.Open()
	if err != nil {
		return writeError(c, http.StatusBadRequest, api.KindBadRequest, "read upload: "+err.Error())
	}
	defer src.Close()

	ctx := c.Request().Context()
	manifestPath := filepath.Join(s.cfg.Paths.UploadsDir, name)
	size, err := fileutil.WriteReaderAtomic(manifestPath, src, 0o644)
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, s.log()), "failed to store uploaded manifest", "upload_failed",
			logging.String("path", manifestPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the uploads directory"),
		)
		return writeError(c, http.StatusInternalServerError, "", "store upload: "+err.Error())
	}
	logging.WithContext(ctx, s.log()).Info("manifest uploaded",
		logging.String("path", manifestPath),
		logging.Int64("bytes", size),
	)

	req.ManifestPath = manifestPath
	result, err := s.daemon.workflow.Start(ctx, req)
	if err != nil {
		return startError(c, err)
	}
	return c.JSON(http.StatusAccepted, api.FromStartResult(result, manifestPath))
}

// startRequest builds a run request from the query string on top of the
// configured defaults.
func (s *apiServer) startRequest(c echo.Context) (workflow.StartRequest, error) {
	req := workflow.DefaultStartRequest(s.cfg, "")
	if value := strings.TrimSpace(c.QueryParam("concurrent")); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return req, fmt.Errorf("concurrent must be a positive integer, got %q", value)
		}
		req.Concurrency = n
	}
	flags := []struct {
		name   string
		target *bool
	}{
		{"add_exif", &req.AddMetadata},
		{"skip_existing", &req.SkipExisting},
		{"merge_overlay", &req.MergeOverlay},
	}
	for _, flag := range flags {
		value := strings.TrimSpace(c.QueryParam(flag.name))
		if value == "" {
			continue
		}
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return req, fmt.Errorf("%s must be a boolean, got %q", flag.name, value)
		}
		*flag.target = parsed
	}
	req.OutputDir = strings.TrimSpace(c.QueryParam("output_dir"))
	return req, nil
}

func startError(c echo.Context, err error) error {
	var parseErr *manifest.ParseError
	switch {
	case workflow.IsAlreadyRunning(err):
		return writeError(c, http.StatusConflict, api.KindAlreadyRunning, err.Error())
	case workflow.IsInvalidOutputPath(err):
		return writeError(c, http.StatusBadRequest, api.KindInvalidOutputPath, err.Error())
	case errors.As(err, &parseErr):
		return writeError(c, http.StatusBadRequest, api.KindInvalidManifest, err.Error())
	default:
		return writeError(c, http.StatusInternalServerError, "", err.Error())
	}
}

func (s *apiServer) handlePause(c echo.Context) error {
	return c.JSON(http.StatusOK, api.ControlResponse{Status: s.daemon.workflow.Pause()})
}

func (s *apiServer) handleResume(c echo.Context) error {
	return c.JSON(http.StatusOK, api.ControlResponse{Status: s.daemon.workflow.Resume()})
}

func (s *apiServer) handleRestart(c echo.Context) error {
	status, err := s.daemon.workflow.Restart(c.Request().Context(), strings.TrimSpace(c.QueryParam("output_dir")))
	if err != nil {
		if workflow.IsInvalidOutputPath(err) {
			return writeError(c, http.StatusBadRequest, api.KindInvalidOutputPath, err.Error())
		}
		return writeError(c, http.StatusInternalServerError, "", err.Error())
	}
	return c.JSON(http.StatusOK, api.ControlResponse{Status: status})
}

func (s *apiServer) handleProgress(c echo.Context) error {
	return c.JSON(http.StatusOK, s.daemon.workflow.Progress())
}

func (s *apiServer) handleDownloads(c echo.Context) error {
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		return writeError(c, http.StatusBadRequest, api.KindBadRequest, "offset must be a non-negative integer")
	}
	limit, err := queryInt(c, "limit", defaultPageLimit)
	if err != nil || limit <= 0 {
		return writeError(c, http.StatusBadRequest, api.KindBadRequest, "limit must be a positive integer")
	}
	limit = min(limit, maxPageLimit)
	return c.JSON(http.StatusOK, s.daemon.workflow.Downloads(offset, limit))
}

func (s *apiServer) handleFailures(c echo.Context) error {
	return c.JSON(http.StatusOK, s.daemon.workflow.Failures())
}

func (s *apiServer) handleTestNotification(c echo.Context) error {
	sent, message, err := s.daemon.TestNotification(c.Request().Context())
	if err != nil {
		logging.WarnWithContext(s.log(), "test notification failed", "test_notification_failed",
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
			logging.Error(err),
		)
		return writeError(c, http.StatusBadGateway, "", message+": "+err.Error())
	}
	return c.JSON(http.StatusOK, api.NotifyResponse{Sent: sent, Message: message})
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	value := strings.TrimSpace(c.QueryParam(name))
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

func writeError(c echo.Context, status int, kind, message string) error {
	return c.JSON(status, api.ErrorResponse{Error: message, Kind: kind})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
