// internal/server/server.go
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"realmgate/internal/observability/logging"
	"realmgate/internal/tenant"
)

// Server represents an HTTP server
type Server struct {
	httpServer      *http.Server
	metricsServer   *http.Server
	registry        *tenant.Registry
	logger          *logging.Logger
	certPath        string
	keyPath         string
	shutdownTimeout time.Duration
}

// Config holds server configuration
type Config struct {
	// Address is the address to listen on
	Address string

	// MetricsAddress is the address to listen on for metrics
	MetricsAddress string

	// TLS configuration
	TLS struct {
		// Enabled indicates whether TLS is enabled
		Enabled bool

		// Config is the TLS configuration
		Config *tls.Config

		// CertPath is the path to the TLS certificate
		CertPath string

		// KeyPath is the path to the TLS key
		KeyPath string
	}

	// ShutdownTimeout is the maximum time to wait for a graceful shutdown
	ShutdownTimeout time.Duration
}

// New creates a new server
func New(config Config, handler http.Handler, metricsHandler http.Handler, logger *logging.Logger) *Server {
	httpServer := &http.Server{
		Addr:              config.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if config.TLS.Enabled && config.TLS.Config != nil {
		httpServer.TLSConfig = config.TLS.Config
	}

	metricsServer := &http.Server{
		Addr:              config.MetricsAddress,
		Handler:           metricsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		httpServer:      httpServer,
		metricsServer:   metricsServer,
		logger:          logger.WithModule("server"),
		certPath:        config.TLS.CertPath,
		keyPath:         config.TLS.KeyPath,
		shutdownTimeout: config.ShutdownTimeout,
	}
}

// Start starts the server
func (s *Server) Start() error {
	// Start metrics server
	go func() {
		s.logger.Info("starting metrics server", "address", s.metricsServer.Addr)
		if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server failed", logging.Err(err))
		}
	}()

	// Start main server. The certificate and key come from the configured
	// paths; the TLS config carries the client CA material.
	if s.httpServer.TLSConfig != nil {
		s.logger.Info("starting HTTPS server", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServeTLS(s.certPath, s.keyPath); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTPS server failed: %w", err)
		}
	} else {
		s.logger.Info("starting HTTP server", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	return nil
}

// ReloadTenants rebuilds the tenant registry from its source
func (s *Server) ReloadTenants(ctx context.Context) error {
	if s.registry == nil {
		return nil
	}
	return s.registry.Reload(ctx)
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping servers", "timeout", s.shutdownTimeout)

	// Create a context with timeout for shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	// Shutdown metrics server
	if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("failed to shut down metrics server", logging.Err(err))
	} else {
		s.logger.Info("metrics server stopped")
	}

	// Shutdown main server
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("failed to shut down HTTP server", logging.Err(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}
