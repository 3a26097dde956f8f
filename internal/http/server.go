// Package http runs the supervision sidecar next to the stdio MCP server.
//
// MCP owns stdin and stdout, so anything an operator polls lives here:
// liveness on /health, a YouTrack round trip on /readyz, and the Prometheus
// exposition on /metrics. The sidecar only runs when youtrackd is started
// with --http.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/trackforge/youtrackd/internal/logging"
	"github.com/trackforge/youtrackd/internal/telemetry"
)

const (
	// probeTimeout bounds the YouTrack round trip behind /readyz.
	probeTimeout = 5 * time.Second

	// verdictTTL is how long a readiness verdict is reused. Supervisors
	// poll /readyz on short intervals, and every cache miss spends
	// YouTrack API quota on a users/me call.
	verdictTTL = 10 * time.Second
)

// ReadinessProbe reports whether YouTrack answers with the configured
// token. It returns the authenticated login; wiring passes users/me here.
type ReadinessProbe func(ctx context.Context) (string, error)

// Config holds the sidecar listen address.
type Config struct {
	Host string
	Port int
}

// Server serves the operator endpoints.
type Server struct {
	echo   *echo.Echo
	probe  ReadinessProbe
	logger *logging.Logger
	addr   string

	// readiness verdict cache
	mu      sync.Mutex
	verdict ReadyResponse
	code    int
	checked time.Time
}

// NewServer assembles the router, middleware, and routes. Nothing listens
// until Start.
func NewServer(probe ReadinessProbe, logger *logging.Logger, cfg *Config) (*Server, error) {
	if probe == nil {
		return nil, fmt.Errorf("readiness probe is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 9090}
	}

	s := &Server{
		probe:  probe,
		logger: logger.Named("sidecar"),
		addr:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestID())
	e.Use(accessLog(s.logger))
	if m, err := newServerMetrics(otel.Meter(telemetry.ScopeHTTP)); err != nil {
		s.logger.Warn(context.Background(), "request metrics unavailable", zap.Error(err))
	} else {
		e.Use(m.middleware())
	}

	e.GET("/health", s.handleHealth)
	e.GET("/readyz", s.handleReady)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo = e
	return s, nil
}

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the body for GET /readyz.
type ReadyResponse struct {
	Status string `json:"status"`
	User   string `json:"user,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handleHealth answers liveness. The process is up, nothing more.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleReady answers readiness from the verdict cache.
func (s *Server) handleReady(c echo.Context) error {
	resp, code := s.checkReady(c.Request().Context())
	return c.JSON(code, resp)
}

// checkReady returns the cached verdict while it is fresh and runs the
// probe otherwise. The lock doubles as a coalescer: pollers arriving during
// a probe wait for it and read its result instead of stacking round trips.
func (s *Server) checkReady(ctx context.Context) (ReadyResponse, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.checked.IsZero() && time.Since(s.checked) < verdictTTL {
		return s.verdict, s.code
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	login, err := s.probe(ctx)
	if err != nil {
		s.logger.Warn(ctx, "readiness probe failed", zap.Error(err))
		s.verdict = ReadyResponse{Status: "unavailable", Error: err.Error()}
		s.code = http.StatusServiceUnavailable
	} else {
		s.verdict = ReadyResponse{Status: "ready", User: login}
		s.code = http.StatusOK
	}
	s.checked = time.Now()
	return s.verdict, s.code
}

// Start listens on the configured address and blocks. A clean Shutdown
// surfaces as http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "sidecar listening", zap.String("addr", s.addr))
	return s.echo.Start(s.addr)
}

// Shutdown stops the listener and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "sidecar stopping")
	return s.echo.Shutdown(ctx)
}
