// Package server runs the Veil gateway: it builds the pipeline and its
// supporting components from configuration and serves them over HTTP.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/veil/pkg/config"
	"mercator-hq/veil/pkg/proxy/handlers"
	"mercator-hq/veil/pkg/proxy/middleware"
	"mercator-hq/veil/pkg/security/auth"
	"mercator-hq/veil/pkg/telemetry/tracing"
)

// Server is the gateway's HTTP server.
type Server struct {
	config       *config.Config
	version      string
	components   *Components
	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
}

// New builds every component described by cfg. The returned server owns
// them; Shutdown releases them.
func New(ctx context.Context, cfg *config.Config, version string) (*Server, error) {
	components, err := BuildComponents(ctx, cfg, version)
	if err != nil {
		return nil, err
	}
	return NewWithComponents(cfg, version, components), nil
}

// NewWithComponents creates a server around components that were built
// elsewhere.
func NewWithComponents(cfg *config.Config, version string, components *Components) *Server {
	return &Server{
		config:     cfg,
		version:    version,
		components: components,
	}
}

// Components returns the server's components.
func (s *Server) Components() *Components {
	return s.components
}

// Start starts background jobs and serves HTTP until ctx is cancelled or
// the listener fails. Cancellation triggers a graceful Shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.ListenAddress, err)
	}
	if s.components.TLS != nil {
		ln = tls.NewListener(ln, s.components.TLS)
	}

	if err := s.components.Start(ctx); err != nil {
		s.mu.Unlock()
		_ = ln.Close()
		return err
	}

	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting gateway",
			"address", ln.Addr().String(),
			"provider", s.components.Provider.GetName(),
			"detector", s.components.Detector.Backend,
			"evidence", s.components.Evidence != nil,
			"tls", s.components.TLS != nil,
			"version", s.version,
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if !ok {
			// Shutdown was called directly.
			return nil
		}
		_ = s.Shutdown(context.Background())
		return err
	}
}

// Shutdown drains in-flight requests, then closes the components in
// dependency order. It runs once; later calls return nil.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		timeout := s.config.Server.ShutdownTimeout
		slog.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var errs []error
		s.mu.RLock()
		httpServer := s.httpServer
		s.mu.RUnlock()
		if httpServer != nil {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
		}
		if err := s.components.Close(shutdownCtx); err != nil {
			errs = append(errs, err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		shutdownErr = errors.Join(errs...)
		if shutdownErr != nil {
			slog.Error("error during shutdown", "error", shutdownErr)
		}
		slog.Info("gateway stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Handler returns the routed handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	c := s.components
	srv := s.config.Server
	authn := auth.FromConfig(s.config.Security.Auth)

	mux := http.NewServeMux()
	route := func(pattern, name string, h http.Handler, protected bool) {
		if protected {
			h = authn.Handle(h)
		}
		h = middleware.MetricsMiddleware(c.Metrics, name)(h)
		h = tracing.HTTPMiddleware(c.Tracer, name)(h)
		mux.Handle(pattern, h)
	}

	route("/v1/chat", "/v1/chat", handlers.NewChatHandler(c.Pipeline, srv.MaxBodyBytes), true)
	route("/v1/detect", "/v1/detect", handlers.NewDetectHandler(c.Pipeline, srv.MaxBodyBytes), true)
	route("/v1/sessions/{id}", "/v1/sessions/{id}", handlers.NewSessionHandler(c.Vault), true)
	route("/health", "/health", c.Health.LivenessHandler(), false)
	route("/ready", "/ready", c.Health.ReadinessHandler(), false)
	route("/", "/", handlers.NewInfoHandler(s.version), false)

	if s.config.Telemetry.Metrics.Enabled {
		path := s.config.Telemetry.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, c.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.TimeoutMiddleware(srv.RequestTimeout)(handler)
	handler = middleware.BodyLimitMiddleware(srv.MaxBodyBytes)(handler)
	handler = middleware.CORSMiddleware(middleware.CORSFromConfig(srv.CORS))(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}
