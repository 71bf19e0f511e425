// internal/auth/manager/manager.go
package manager

import (
	"fmt"
	"net/http"

	"realmgate/internal/auth"
	"realmgate/internal/auth/bearer"
	"realmgate/internal/auth/mtls"
	"realmgate/internal/config"
	"realmgate/internal/observability/logging"
	"realmgate/internal/observability/metrics"
	"realmgate/internal/tenant"
	"realmgate/internal/tls"
	"realmgate/internal/token"
)

// Manager coordinates multiple authentication methods
type Manager struct {
	logger         *logging.Logger
	authenticators []auth.Authenticator
}

// NewManager creates a new authentication manager
func NewManager(authenticators []auth.Authenticator, logger *logging.Logger) *Manager {
	return &Manager{
		authenticators: authenticators,
		logger:         logger.WithModule("auth.manager"),
	}
}

// Middleware creates a middleware chain from all enabled authenticators.
// The first authenticator to set an identity wins; the others pass through.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	// Wrap in reverse so the first authenticator in the list is the
	// outermost handler: mTLS runs before Bearer.
	handler := next
	for i := len(m.authenticators) - 1; i >= 0; i-- {
		handler = m.authenticators[i].GetMiddleware(handler)
		m.logger.Debug("added authenticator to middleware chain", "authenticator", m.authenticators[i].Name())
	}
	return handler
}

// GetAuthenticators returns the list of enabled authenticators
func (m *Manager) GetAuthenticators() []auth.Authenticator {
	return m.authenticators
}

// NewManagerFromConfig creates a Manager with authenticators configured
// from application config. The resolver and parser feed the bearer
// authenticator's tenant pipeline.
func NewManagerFromConfig(cfg *config.Config, tlsConfig *tls.Config, resolver *tenant.Resolver, parser *token.Parser, logger *logging.Logger, metrics *metrics.Collector) (*Manager, error) {
	factoryLogger := logger.WithModule("auth.factory")
	var authenticators []auth.Authenticator

	// Order matters: mTLS first so infrastructure clients bypass the
	// token pipeline, then Bearer.

	if cfg.Auth.MTLS.Enabled {
		mtlsAuth, err := mtls.New(mtls.Config{
			Enabled:   true,
			CAPaths:   cfg.Auth.MTLS.CAPaths,
			TLSConfig: tlsConfig,
		}, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mTLS authenticator: %w", err)
		}
		authenticators = append(authenticators, mtlsAuth)
		factoryLogger.Info("mTLS authentication enabled")
	}

	if cfg.Auth.Bearer.Enabled {
		bearerAuth, err := bearer.New(bearer.Config{
			Enabled: true,
		}, resolver, parser, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Bearer authenticator: %w", err)
		}
		authenticators = append(authenticators, bearerAuth)
		factoryLogger.Info("Bearer authentication enabled")
	}

	if len(authenticators) == 0 {
		factoryLogger.Warn("no authentication methods enabled")
	}

	return NewManager(authenticators, logger), nil
}
