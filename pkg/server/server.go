// Package server provides the mock payment-gated HTTP server: every
// configured route is guarded by the policy engine, and priced routes
// answer unpaid requests with a 402 invoice.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tollgate-hq/tollgate/pkg/audit/recorder"
	"tollgate-hq/tollgate/pkg/config"
	"tollgate-hq/tollgate/pkg/engine"
	"tollgate-hq/tollgate/pkg/policy/manager"
	"tollgate-hq/tollgate/pkg/server/middleware"
	"tollgate-hq/tollgate/pkg/state"
)

// Options bundles the server's collaborators.
type Options struct {
	Config   *config.Config
	Manager  *manager.Manager
	Engine   *engine.Engine
	Store    state.Store
	Recorder *recorder.Recorder

	// Registry hosts /metrics. Nil creates a private registry.
	Registry *prometheus.Registry

	Logger *slog.Logger
}

// Server is the mock payment-gated HTTP server.
type Server struct {
	config   *config.Config
	manager  *manager.Manager
	engine   *engine.Engine
	store    state.Store
	recorder *recorder.Recorder
	registry *prometheus.Registry
	metrics  *httpMetrics
	logger   *slog.Logger

	sweeper *sweeper

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server from its options.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if opts.Manager == nil {
		return nil, fmt.Errorf("policy manager cannot be nil")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("state store cannot be nil")
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		config:   opts.Config,
		manager:  opts.Manager,
		engine:   opts.Engine,
		store:    opts.Store,
		recorder: opts.Recorder,
		registry: opts.Registry,
		metrics:  newHTTPMetrics(opts.Registry),
		logger:   opts.Logger.With("component", "server"),
	}
	s.sweeper = newSweeper(opts.Store, opts.Config.Server, s.logger)
	return s, nil
}

// Start starts the HTTP server and blocks until ctx is cancelled or
// the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.config.Server.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	if err := s.sweeper.start(ctx); err != nil {
		return fmt.Errorf("failed to start state sweeper: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"address", s.config.Server.ListenAddress,
			"routes", len(s.config.Routes),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the server and its background jobs.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown")

		s.sweeper.stop()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	for _, route := range s.config.Routes {
		mux.Handle(route.Path, s.gateHandler(route))
	}

	var handler http.Handler = mux
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(handler)
	return handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":        "ok",
		"state_entries": s.store.Len(),
	}
	if snapshot := s.manager.Current(); snapshot != nil {
		status["policy_version"] = snapshot.Version
		status["policies"] = len(snapshot.Set.Policies)
	} else {
		status["status"] = "no policies loaded"
	}
	writeJSON(w, http.StatusOK, status)
}
