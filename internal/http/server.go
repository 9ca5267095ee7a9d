// Package http serves the optional local decision API. Hooks never depend
// on it; it exists so editors and statuslines can query session state and
// so the gate can be exercised as a service.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/sessiond/internal/config"
	"github.com/fyrsmithlabs/sessiond/internal/gate"
	"github.com/fyrsmithlabs/sessiond/internal/state"
	"github.com/fyrsmithlabs/sessiond/pkg/git"
)

// Server exposes the session state and the tool gate over HTTP.
type Server struct {
	echo        *echo.Echo
	cfg         *config.Config
	store       *state.Store
	gate        *gate.Gate
	metrics     *Metrics
	projectRoot string
	logger      *zap.Logger
}

// NewServer wires the server for one project.
func NewServer(cfg *config.Config, store *state.Store, g *gate.Gate, projectRoot string, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if g == nil {
		return nil, fmt.Errorf("gate is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:        e,
		cfg:         cfg,
		store:       store,
		gate:        g,
		metrics:     NewMetrics(),
		projectRoot: projectRoot,
		logger:      logger,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.RateLimit))))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			s.metrics.RecordRequest(c.Request().Method, c.Path(), strconv.Itoa(c.Response().Status))

			return err
		}
	})

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/status", s.handleStatus)
	v1.POST("/decision", s.handleDecision)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleStatus reports mode, task, branch and the monitor's flag state.
func (s *Server) handleStatus(c echo.Context) error {
	resp := StatusResponse{Mode: string(s.store.ReadMode())}

	if task, ok := s.store.ReadTask(); ok {
		resp.Task = &TaskStatus{Name: task.Name, RequiredBranch: task.RequiredBranch}
	}
	if branch, err := git.CurrentBranch(s.projectRoot); err == nil {
		resp.Branch = branch
	}

	flags := s.store.ReadFlags(s.store.CurrentEpoch())
	resp.Context = &ContextStatus{
		UsableTokens: s.cfg.Context.UsableTokens,
		WarnedLow:    flags.Crossed75,
		WarnedHigh:   flags.Crossed90,
	}

	return c.JSON(http.StatusOK, resp)
}

// handleDecision runs the tool gate on a caller-supplied invocation.
func (s *Server) handleDecision(c echo.Context) error {
	var req DecisionRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid decision request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Tool == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tool field is required")
	}

	d := s.gate.Evaluate(c.Request().Context(), gate.Request{
		Tool:           req.Tool,
		Input:          req.Input,
		NestedExecutor: req.NestedExecutor,
	})
	s.metrics.RecordDecision(string(d.Outcome), d.Reason)

	return c.JSON(http.StatusOK, DecisionResponse{
		Outcome: string(d.Outcome),
		Reason:  d.Reason,
		Message: d.Message,
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler { return s.echo }
