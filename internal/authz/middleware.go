// internal/authz/middleware.go
package authz

import (
	"net/http"

	"realmgate/internal/contextutil"
	"realmgate/internal/observability/logging"
	"realmgate/internal/observability/metrics"
)

// Middleware builds the HTTP middleware enforcing a requirement through the
// given authorizer. The decision mapping is shared by every backend:
// Allow passes through, Deny is 403, a missing identity is 401 and a
// backend failure is 503. The gate itself never retries.
func Middleware(a Authorizer, requirement Requirement, ruleName string, logger *logging.Logger, metricsCollector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqLogger := logging.LoggerFromContext(ctx)
			if reqLogger == nil {
				reqLogger = logger
			}

			// The gate assumes authentication already happened; without an
			// identity the outcome is 401, never 403.
			identity := contextutil.GetIdentity(ctx)
			if identity == nil {
				reqLogger.Debug("authorization failed: no identity in context", "rule", ruleName)
				metricsCollector.RecordAuthorization(ruleName, Unauthorized.String())
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			response := a.Authorize(&Request{
				Identity:    identity,
				Requirement: requirement,
				Context:     ctx,
			})
			metricsCollector.RecordAuthorization(ruleName, response.Decision.String())

			switch response.Decision {
			case Allow:
				reqLogger.Debug("authorization successful",
					"rule", ruleName,
					"subject", identity.Subject,
				)
				next.ServeHTTP(w, r)
			case Deny:
				reqLogger.Info("authorization denied",
					"rule", ruleName,
					"subject", identity.Subject,
					"reason", response.Reason,
				)
				http.Error(w, "Forbidden", http.StatusForbidden)
			case Unauthorized:
				reqLogger.Info("authorization requires an authenticated caller", "rule", ruleName)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
			case Error:
				reqLogger.Error("authorization backend failed", "rule", ruleName, logging.Err(response.Error))
				http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			}
		})
	}
}
