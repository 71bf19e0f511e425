// internal/config/types.go
package config

import (
	"net/url"
	"time"

	"realmgate/internal/tenant"
)

// Config represents the complete application configuration
type Config struct {
	// Server holds HTTP server configuration
	Server struct {
		// Address is the address to listen on
		Address string
		// ShutdownTimeout is the maximum time to wait for a graceful shutdown
		ShutdownTimeout time.Duration
	}

	// Metrics holds metrics server configuration
	Metrics struct {
		// Address is the address to listen on for the metrics server
		Address string
	}

	// TLS holds TLS configuration
	TLS struct {
		// Enabled indicates whether TLS is enabled
		Enabled bool
		// CertPath is the path to the TLS certificate
		CertPath string
		// KeyPath is the path to the TLS key
		KeyPath string
		// CAPath is the path to the CA certificate for client verification
		CAPath string
	}

	// Upstream holds configuration for the upstream service
	Upstream struct {
		// URL is the URL of the upstream service
		URL *url.URL
		// Timeout is the maximum time to wait for upstream responses
		Timeout time.Duration
	}

	// Tenancy holds tenant resolution configuration
	Tenancy struct {
		// PathPrefix is the service prefix stripped from request paths before
		// the tenant segment (e.g. "/service/calendar")
		PathPrefix string
		// DefaultTenant is the tenant used when the path carries no tenant
		// segment. Empty means no default: such requests are rejected.
		DefaultTenant string
		// Source is where tenant definitions come from ("static" or "directory")
		Source string
		// Tenants is the static tenant table used when Source is "static"
		Tenants []tenant.Definition
		// TenantsFile is an optional dedicated file holding the static tenant table
		TenantsFile string

		// Directory holds tenant directory client configuration
		Directory struct {
			// URL is the base URL of the tenant directory service
			URL string
			// Timeout is the maximum time to wait for directory responses
			Timeout time.Duration
			// TokenURL is the OAuth2 token endpoint for directory credentials
			TokenURL string
			// ClientID is the OAuth2 client ID for the directory
			ClientID string
			// ClientSecret is the OAuth2 client secret for the directory
			ClientSecret string
			// Scopes is a list of OAuth2 scopes to request
			Scopes []string
		}
	}

	// Auth holds authentication configuration
	Auth struct {
		// MTLS holds mTLS authentication configuration
		MTLS struct {
			// Enabled indicates whether mTLS authentication is enabled
			Enabled bool
			// CAPaths is a list of paths to CA certificates for client verification
			CAPaths []string
		}

		// Bearer holds Bearer token authentication configuration
		Bearer struct {
			// Enabled indicates whether Bearer token authentication is enabled
			Enabled bool
		}

		// Leeway is the clock skew tolerated when validating token time claims
		Leeway time.Duration
	}

	// Authz holds authorization configuration
	Authz struct {
		// Type is the type of authorizer to use (roles, spicedb)
		Type string

		// SpiceDB holds SpiceDB configuration
		SpiceDB struct {
			// Endpoint is the SpiceDB endpoint
			Endpoint string
			// Insecure indicates whether to use an insecure connection
			Insecure bool
			// Token is the SpiceDB authentication token
			Token string
			// ResourceType is the SpiceDB resource type
			ResourceType string
			// ResourceID is the SpiceDB resource ID
			ResourceID string
			// SubjectType is the SpiceDB subject type
			SubjectType string
		}
	}

	// Observability holds observability configuration
	Observability struct {
		// LogLevel is the minimum log level to emit
		LogLevel string
		// LogFormat is the log format (json, text)
		LogFormat string
	}

	// Rules holds route rules configuration
	Rules []Rule

	// RulesFile is an optional dedicated file holding the route rules
	RulesFile string
}

// Rule defines a routing rule for the proxy
type Rule struct {
	// Name is a unique identifier for the rule
	Name string `mapstructure:"name" json:"name" yaml:"name"`

	// Action determines what action to take for matched requests
	// Can be "allow", "deny", or "auth"
	Action string `mapstructure:"action" json:"action" yaml:"action"`

	// Paths is a list of URL paths this rule applies to
	Paths []string `mapstructure:"paths" json:"paths" yaml:"paths"`

	// MatchPrefix indicates whether to match the path prefix instead of exact match
	MatchPrefix bool `mapstructure:"match_prefix" json:"match_prefix" yaml:"match_prefix"`

	// Methods is a list of HTTP methods this rule applies to (empty = all methods)
	Methods []string `mapstructure:"methods" json:"methods" yaml:"methods"`

	// RequiredRoles is the set of roles accepted for "auth" action rules.
	// The caller needs any one of them. Empty means authentication alone
	// is enough.
	RequiredRoles []string `mapstructure:"required_roles" json:"required_roles" yaml:"required_roles"`

	// Permission is the permission checked by backends that model
	// permissions (SpiceDB). Ignored by the roles authorizer.
	Permission string `mapstructure:"permission" json:"permission" yaml:"permission"`

	// Resource is the resource identifier for authorization checks
	// If empty, the default resource from configuration is used
	Resource string `mapstructure:"resource" json:"resource" yaml:"resource"`
}
