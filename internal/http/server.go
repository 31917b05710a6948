// Package http provides the HTTP API for answerd: a form-POST chat
// endpoint, a WebSocket per-session channel, and health.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/session"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server provides HTTP endpoints for answerd.
type Server struct {
	echo        *echo.Echo
	coordinator *session.Coordinator
	logger      *zap.Logger
	config      *Config
}

// NewServer creates the HTTP server.
func NewServer(coordinator *session.Coordinator, logger *zap.Logger, cfg *Config) (*Server, error) {
	if coordinator == nil {
		return nil, fmt.Errorf("coordinator cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8000}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := NewHTTPMetrics(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(metrics.Middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:        e,
		coordinator: coordinator,
		logger:      logger,
		config:      cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.POST("/get", s.handleChat)
	s.echo.GET("/ws/chat", s.handleWebSocket)
}

// Echo returns the underlying echo instance, for registering extra routes
// such as the metrics handler.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleChat answers one question from the form field "msg" and replies in
// plain text. A failed turn still answers 200 with the fallback text; the
// cause is in the logs, not the body.
func (s *Server) handleChat(c echo.Context) error {
	msg := c.FormValue("msg")
	if msg == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "msg form field is required")
	}

	result, err := s.coordinator.Answer(c.Request().Context(), msg, nil)
	if err != nil {
		// Client went away mid-turn; nothing to deliver.
		return err
	}

	return c.String(http.StatusOK, result.Answer)
}

// Start runs the server until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, shutdownTimeout time.Duration) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
