// internal/auth/bearer/authenticator.go
package bearer

import (
	"errors"
	"net/http"
	"strings"

	"realmgate/internal/auth"
	"realmgate/internal/claims"
	"realmgate/internal/contextutil"
	"realmgate/internal/observability/logging"
	"realmgate/internal/observability/metrics"
	"realmgate/internal/tenant"
	"realmgate/internal/token"
)

// Authenticator implements Bearer token authentication against per-tenant
// OIDC configuration. For every request carrying a bearer token it resolves
// the tenant from the path, validates the token against that tenant and
// derives the caller identity. Each stage is terminal on failure: an
// unknown tenant, an invalid token or a missing mandatory claim all end the
// request as unauthenticated.
type Authenticator struct {
	logger   *logging.Logger
	metrics  *metrics.Collector
	enabled  bool
	resolver *tenant.Resolver
	parser   *token.Parser
}

// Config holds Bearer authenticator configuration
type Config struct {
	// Enabled indicates whether Bearer authentication is enabled
	Enabled bool
}

// New creates a new Bearer authenticator
func New(config Config, resolver *tenant.Resolver, parser *token.Parser, logger *logging.Logger, metrics *metrics.Collector) (*Authenticator, error) {
	logger = logger.WithModule("auth.bearer")

	if !config.Enabled {
		return &Authenticator{
			logger:  logger,
			metrics: metrics,
			enabled: false,
		}, nil
	}

	if resolver == nil || parser == nil {
		return nil, errors.New("Bearer authentication enabled but tenant resolver or token parser missing")
	}

	return &Authenticator{
		logger:   logger,
		metrics:  metrics,
		enabled:  true,
		resolver: resolver,
		parser:   parser,
	}, nil
}

// Name returns the name of this authenticator
func (a *Authenticator) Name() string {
	return "bearer"
}

// GetMiddleware returns an http.Handler middleware that performs Bearer authentication
func (a *Authenticator) GetMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		logger := logging.LoggerFromContext(ctx)
		if logger == nil {
			logger = a.logger
		}

		// An earlier authenticator (mTLS) may already have identified the
		// caller.
		if identity := contextutil.GetIdentity(ctx); identity != nil {
			logger.Debug("skipping bearer: identity already set", "subject", identity.Subject)
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			// No bearer token; the request stays unauthenticated and
			// auth-requiring rules reject it downstream.
			next.ServeHTTP(w, r)
			return
		}

		rawToken := strings.TrimPrefix(authHeader, "Bearer ")
		if rawToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		ten, err := a.resolver.Resolve(ctx, r.URL.Path)
		if err != nil {
			if errors.Is(err, tenant.ErrTenantNotFound) {
				logger.Info("bearer authentication failed: unknown tenant",
					"segment", a.resolver.Segment(r.URL.Path), "path", r.URL.Path)
				a.metrics.RecordAuthentication(a.Name(), "unknown", false)
				http.Error(w, "Unknown tenant", http.StatusUnauthorized)
				return
			}
			logger.Error("bearer authentication failed: tenant resolution error", logging.Err(err))
			a.metrics.RecordAuthentication(a.Name(), "unknown", false)
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}

		set, err := a.parser.Parse(ctx, rawToken, ten)
		if err != nil {
			var verr *token.ValidationError
			switch {
			case errors.As(err, &verr):
				logger.Info("bearer token rejected",
					"tenant", ten.ID, "kind", verr.Kind.String(), logging.Err(err))
				a.metrics.RecordTokenValidationError(ten.ID, verr.Kind.String())
				a.metrics.RecordAuthentication(a.Name(), ten.ID, false)
				http.Error(w, "Invalid bearer token", http.StatusUnauthorized)
			case errors.Is(err, tenant.ErrKeySourceUnavailable):
				logger.Error("bearer token undecided: tenant key source unavailable",
					"tenant", ten.ID, logging.Err(err))
				a.metrics.RecordAuthentication(a.Name(), ten.ID, false)
				http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			default:
				logger.Error("bearer token verification failed", "tenant", ten.ID, logging.Err(err))
				a.metrics.RecordAuthentication(a.Name(), ten.ID, false)
				http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			}
			return
		}

		identity, err := claims.FromSet(set, ten.ID, a.Name(), ten.RolesClaim)
		if err != nil {
			logger.Info("bearer token rejected: mandatory claim missing",
				"tenant", ten.ID, logging.Err(err))
			a.metrics.RecordAuthentication(a.Name(), ten.ID, false)
			http.Error(w, "Invalid bearer token", http.StatusUnauthorized)
			return
		}

		logger.Debug("bearer token valid",
			"tenant", ten.ID, "subject", identity.Subject, "roles", identity.Roles)
		a.metrics.RecordAuthentication(a.Name(), ten.ID, true)

		ctx = auth.ContextWithIdentity(ctx, identity)
		ctx = auth.ContextWithAuthType(ctx, auth.AuthTypeBearer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
