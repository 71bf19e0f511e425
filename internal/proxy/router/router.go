// internal/proxy/router/router.go
package router

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"realmgate/internal/authz"
	"realmgate/internal/httputils"
	"realmgate/internal/observability/logging"
	"realmgate/internal/observability/metrics"

	"github.com/gorilla/mux"
)

// Rule defines a routing rule
type Rule struct {
	// Name is a unique identifier for the rule
	Name string

	// Action determines what action to take for matched requests
	// Can be "allow", "deny", or "auth"
	Action string

	// Paths is a list of URL paths this rule applies to
	Paths []string

	// MatchPrefix indicates whether to match the path prefix instead of exact match
	MatchPrefix bool

	// Methods is a list of HTTP methods this rule applies to (empty = all methods)
	Methods []string

	// RequiredRoles is the set of roles accepted for "auth" rules. The
	// caller needs any one of them; empty means authentication alone is
	// enough.
	RequiredRoles []string

	// Permission is the permission checked by backends that model
	// permissions. Ignored by the roles authorizer.
	Permission string

	// Resource is the resource identifier for authorization checks
	// If empty, the default resource from configuration is used
	Resource string
}

// Router is a proxy router that implements routing rules and authorization
type Router struct {
	*mux.Router
	target      *httputil.ReverseProxy
	authorizer  authz.Authorizer
	rules       []Rule
	logger      *logging.Logger
	metrics     *metrics.Collector
	upstreamURL *url.URL
}

// Config holds router configuration
type Config struct {
	// UpstreamURL is the URL of the upstream service
	UpstreamURL *url.URL

	// UpstreamTimeout is the timeout for upstream service requests
	UpstreamTimeout time.Duration

	// Rules is the list of routing rules
	Rules []Rule
}

// New creates a new router
func New(config Config, authorizer authz.Authorizer, logger *logging.Logger, metricsCollector *metrics.Collector) *Router {
	target := httputil.NewSingleHostReverseProxy(config.UpstreamURL)
	target.Transport = &http.Transport{
		ResponseHeaderTimeout: config.UpstreamTimeout,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	r := &Router{
		Router:      mux.NewRouter(),
		target:      target,
		authorizer:  authorizer,
		rules:       config.Rules,
		logger:      logger.WithModule("proxy.router"),
		metrics:     metricsCollector,
		upstreamURL: config.UpstreamURL,
	}

	r.logger.Info("proxying to upstream", "upstream", logging.RedactURL(config.UpstreamURL))

	r.setupRoutes()

	return r
}

// setupRoutes configures routes based on rules
func (r *Router) setupRoutes() {
	// Liveness probe, answered locally. Registered ahead of the rules so
	// a catch-all prefix cannot claim it.
	r.Path("/healthz").Methods(http.MethodGet).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	upstream := r.upstreamHandler()

	for _, rule := range r.rules {
		r.logger.Debug("setting up route",
			"name", rule.Name,
			"action", rule.Action,
			"paths", rule.Paths,
			"methods", rule.Methods,
		)

		handler := r.handlerForRule(rule, upstream)

		for _, path := range rule.Paths {
			var route *mux.Route
			if rule.MatchPrefix {
				route = r.PathPrefix(path)
			} else {
				route = r.Path(path)
			}

			if len(rule.Methods) > 0 {
				route = route.Methods(rule.Methods...)
			}

			route.Name(rule.Name).Handler(handler)
		}
	}

	// Default 404 handler for any unmatched routes
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.logger.Warn("request received for undefined route", "path", req.URL.Path)
		r.metrics.RecordRequest(req.Method, req.URL.Path, http.StatusNotFound, 0)
		http.Error(w, "404 page not found", http.StatusNotFound)
	})
}

// handlerForRule builds the handler chain for a single rule.
func (r *Router) handlerForRule(rule Rule, upstream http.Handler) http.Handler {
	action := rule.Action
	var handler http.Handler

	switch rule.Action {
	case "allow":
		handler = upstream
	case "deny":
		handler = r.denyHandler()
	case "auth":
		requirement := authz.Requirement{
			Roles:      rule.RequiredRoles,
			Permission: rule.Permission,
			Resource:   rule.Resource,
		}
		handler = authz.Middleware(r.authorizer, requirement, rule.Name, r.logger, r.metrics)(upstream)
	default:
		r.logger.Warn("unknown action in rule, defaulting to deny",
			"rule", rule.Name, "action", rule.Action)
		action = "deny"
		handler = r.denyHandler()
	}

	return r.recordMatch(rule.Name, action, handler)
}

// recordMatch counts rule hits before the rule's handler runs.
func (r *Router) recordMatch(ruleName, action string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		logger := logging.LoggerFromContext(req.Context())
		if logger == nil {
			logger = r.logger
		}

		logger.Debug("route matched",
			"rule", ruleName,
			"action", action,
			"path", req.URL.Path,
			"method", req.Method,
		)

		r.metrics.RecordRuleMatch(ruleName, action)
		next.ServeHTTP(w, req)
	})
}

// denyHandler rejects matched requests outright.
func (r *Router) denyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Forbidden", http.StatusForbidden)
	})
}

// upstreamHandler proxies the request and records what the upstream did.
// Duration is measured around the proxy call itself so it reflects the
// actual upstream round trip.
func (r *Router) upstreamHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		wrapper := httputils.NewResponseWriter(w)

		r.target.ServeHTTP(wrapper, req)

		r.metrics.RecordUpstreamRequest(req.Method, r.upstreamURL.String(), wrapper.StatusCode, time.Since(start))
	})
}
