package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Common label names for consistent metrics
const (
	LabelRule     = "rule"
	LabelAction   = "action"
	LabelStatus   = "status"
	LabelMethod   = "method"
	LabelPath     = "path"
	LabelAuth     = "auth_type"
	LabelSuccess  = "success"
	LabelTenant   = "tenant"
	LabelOutcome  = "outcome"
	LabelKind     = "kind"
	LabelDecision = "decision"
)

var (
	// RequestsTotal counts all HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realmgate_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	// RequestDuration tracks the duration of HTTP requests
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realmgate_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	// TenantLookupTotal counts tenant registry lookups by outcome
	TenantLookupTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realmgate_tenant_lookup_total",
			Help: "Total number of tenant registry lookups",
		},
		[]string{LabelOutcome},
	)

	// RegistryTenants tracks the number of tenants currently registered
	RegistryTenants = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realmgate_registry_tenants",
			Help: "Number of tenants currently held by the registry",
		},
	)

	// RegistryReloadTotal counts registry load and reload attempts
	RegistryReloadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realmgate_registry_reload_total",
			Help: "Total number of tenant registry reloads",
		},
		[]string{LabelSuccess},
	)

	// AuthenticationTotal counts authentication attempts by type, tenant and outcome
	AuthenticationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realmgate_authentication_total",
			Help: "Total number of authentication attempts",
		},
		[]string{LabelAuth, LabelTenant, LabelSuccess},
	)

	// TokenValidationErrors counts token validation failures by kind
	TokenValidationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realmgate_token_validation_errors_total",
			Help: "Total number of token validation failures",
		},
		[]string{LabelTenant, LabelKind},
	)

	// AuthorizationTotal counts authorization checks by rule and decision
	AuthorizationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realmgate_authorization_total",
			Help: "Total number of authorization checks",
		},
		[]string{LabelRule, LabelDecision},
	)

	// RuleMatchTotal counts rule matches by rule name and action
	RuleMatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realmgate_rule_match_total",
			Help: "Total number of rule matches",
		},
		[]string{LabelRule, LabelAction},
	)

	// UpstreamRequestTotal counts requests to upstream services
	UpstreamRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realmgate_upstream_requests_total",
			Help: "Total number of requests to upstream services",
		},
		[]string{LabelMethod, "upstream", LabelStatus},
	)

	// UpstreamRequestDuration tracks the duration of upstream requests
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realmgate_upstream_request_duration_seconds",
			Help:    "Duration of requests to upstream services in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelMethod, "upstream"},
	)
)

// Collector provides methods for recording metrics
type Collector struct{}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{}
}

// RecordRequest records metrics for an HTTP request
func (c *Collector) RecordRequest(method, path string, status int, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, path, http.StatusText(status)).Inc()
	RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTenantLookup records a tenant registry lookup outcome
// ("hit", "fetched", "miss" or "error")
func (c *Collector) RecordTenantLookup(outcome string) {
	TenantLookupTotal.WithLabelValues(outcome).Inc()
}

// SetRegistrySize records the current number of registered tenants
func (c *Collector) SetRegistrySize(n int) {
	RegistryTenants.Set(float64(n))
}

// RecordRegistryReload records a registry load or reload attempt
func (c *Collector) RecordRegistryReload(success bool) {
	RegistryReloadTotal.WithLabelValues(boolToString(success)).Inc()
}

// RecordAuthentication records an authentication attempt
func (c *Collector) RecordAuthentication(authType, tenant string, success bool) {
	AuthenticationTotal.WithLabelValues(authType, tenant, boolToString(success)).Inc()
}

// RecordTokenValidationError records a token validation failure by kind
func (c *Collector) RecordTokenValidationError(tenant, kind string) {
	TokenValidationErrors.WithLabelValues(tenant, kind).Inc()
}

// RecordAuthorization records an authorization check decision
func (c *Collector) RecordAuthorization(rule, decision string) {
	AuthorizationTotal.WithLabelValues(rule, decision).Inc()
}

// RecordRuleMatch records a rule match
func (c *Collector) RecordRuleMatch(ruleName, action string) {
	RuleMatchTotal.WithLabelValues(ruleName, action).Inc()
}

// RecordUpstreamRequest records a request to an upstream service
func (c *Collector) RecordUpstreamRequest(method, upstream string, status int, duration time.Duration) {
	UpstreamRequestTotal.WithLabelValues(method, upstream, http.StatusText(status)).Inc()
	UpstreamRequestDuration.WithLabelValues(method, upstream).Observe(duration.Seconds())
}

// Handler returns an HTTP handler for exposing metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// boolToString converts a boolean to a string representation
func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
