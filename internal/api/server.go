// Package api is the HTTP surface of toolhub: launch, stop, status, the tool
// catalog, lifecycle events and metrics.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/mattjoyce/toolhub/internal/auth"
	"github.com/mattjoyce/toolhub/internal/catalog"
	"github.com/mattjoyce/toolhub/internal/events"
	"github.com/mattjoyce/toolhub/internal/metrics"
	"github.com/mattjoyce/toolhub/internal/procstat"
	"github.com/mattjoyce/toolhub/internal/registry"
	"github.com/mattjoyce/toolhub/internal/supervisor"
)

// Launcher starts tools.
type Launcher interface {
	Launch(ctx context.Context, req supervisor.LaunchRequest) (supervisor.LaunchResult, error)
}

// Terminator stops tracked (or untracked) processes.
type Terminator interface {
	Terminate(pid int) (supervisor.TerminateResult, error)
}

// InspectFunc reads live OS stats for a pid.
type InspectFunc func(ctx context.Context, pid int) (procstat.Stats, error)

// Config holds API server configuration
type Config struct {
	Listen string
	// APIKey is a single bearer token with full access.
	APIKey string
	// Tokens is an optional list of scoped bearer tokens.
	Tokens []auth.TokenConfig
	// LaunchRPS limits launch requests; <= 0 disables limiting.
	LaunchRPS   float64
	LaunchBurst int
}

// Server represents the HTTP API server
type Server struct {
	config     Config
	registry   *registry.Registry
	catalog    catalog.Store
	launcher   Launcher
	terminator Terminator
	events     *events.Hub
	inspect    InspectFunc
	limiter    *rate.Limiter
	logger     *slog.Logger
	server     *http.Server
	startedAt  time.Time
}

// New creates a new API server instance
func New(config Config, reg *registry.Registry, cat catalog.Store, launcher Launcher, terminator Terminator, hub *events.Hub, logger *slog.Logger) *Server {
	s := &Server{
		config:     config,
		registry:   reg,
		catalog:    cat,
		launcher:   launcher,
		terminator: terminator,
		events:     hub,
		inspect:    procstat.Inspect,
		logger:     logger,
		startedAt:  time.Now(),
	}
	if config.LaunchRPS > 0 {
		burst := config.LaunchBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(config.LaunchRPS), burst)
	}
	return s
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:        s.config.Listen,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: /events is a long-lived stream.
		IdleTimeout: 60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated ops endpoints.
	r.Get("/healthz", s.handleHealthz)
	r.Get("/openapi.json", s.handleOpenAPI)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.With(s.requireScopes(auth.ScopeToolsLaunch), s.launchRateLimit).Post("/api/launch-tool", s.handleLaunchTool)
		r.With(s.requireScopes(auth.ScopeProcessWrite)).Post("/api/stop-tool", s.handleStopTool)
		r.With(s.requireScopes(auth.ScopeProcessRead)).Get("/api/running-status", s.handleRunningStatus)
		r.With(s.requireScopes(auth.ScopeProcessRead)).Get("/api/processes/{pid}", s.handleGetProcess)
		r.With(s.requireScopes(auth.ScopeToolsRead)).Get("/api/tools", s.handleListTools)
		r.With(s.requireScopes(auth.ScopeEventsRead)).Get("/events", s.handleEvents)
	})

	return r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
