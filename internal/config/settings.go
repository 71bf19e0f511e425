// internal/config/settings.go
package config

import "github.com/spf13/viper"

// SettingType represents the type of a setting
type SettingType string

const (
	// String type for string settings
	String SettingType = "string"
	// Bool type for boolean settings
	Bool SettingType = "bool"
	// Int type for integer settings
	Int SettingType = "int"
	// StringSlice type for string slice settings
	StringSlice SettingType = "stringSlice"
)

// Setting defines a configuration setting
type Setting struct {
	// Name is the name of the setting
	Name string
	// Short is a short description of the setting
	Short string
	// Type is the type of the setting
	Type SettingType
	// Default is the default value of the setting
	Default interface{}
	// Env is the environment variable name for the setting
	Env string
	// Required indicates whether the setting is required
	Required bool
}

// SettingList is a list of settings
type SettingList []Setting

// PopulateViperDefaults sets default values for all settings in Viper
func (sl SettingList) PopulateViperDefaults(v *viper.Viper) {
	for _, s := range sl {
		v.SetDefault(s.Name, s.Default)
	}
}

// Settings defines all application settings
var Settings = SettingList{
	// Server settings
	{
		Name:    "SERVER_ADDR",
		Short:   "Address on which the server listens",
		Type:    String,
		Default: ":8000",
		Env:     "SERVER_ADDR",
	},
	{
		Name:    "METRICS_ADDR",
		Short:   "Address on which the metrics server listens",
		Type:    String,
		Default: ":9090",
		Env:     "METRICS_ADDR",
	},
	{
		Name:    "SHUTDOWN_TIMEOUT",
		Short:   "Maximum time to wait for graceful shutdown",
		Type:    String,
		Default: "30s",
		Env:     "SHUTDOWN_TIMEOUT",
	},

	// TLS settings
	{
		Name:    "TLS_ENABLED",
		Short:   "Enable TLS for the server",
		Type:    Bool,
		Default: false,
		Env:     "TLS_ENABLED",
	},
	{
		Name:    "TLS_CERT_PATH",
		Short:   "Path to TLS certificate file",
		Type:    String,
		Default: "",
		Env:     "TLS_CERT_PATH",
	},
	{
		Name:    "TLS_KEY_PATH",
		Short:   "Path to TLS key file",
		Type:    String,
		Default: "",
		Env:     "TLS_KEY_PATH",
	},
	{
		Name:    "TLS_CA_PATH",
		Short:   "Path to TLS CA certificate file",
		Type:    String,
		Default: "",
		Env:     "TLS_CA_PATH",
	},

	// Upstream settings
	{
		Name:     "UPSTREAM_URL",
		Short:    "URL of the upstream service",
		Type:     String,
		Default:  "",
		Env:      "UPSTREAM_URL",
		Required: true,
	},
	{
		Name:    "UPSTREAM_TIMEOUT",
		Short:   "Timeout for upstream requests",
		Type:    String,
		Default: "30s",
		Env:     "UPSTREAM_TIMEOUT",
	},

	// Tenancy settings
	{
		Name:    "TENANT_PATH_PREFIX",
		Short:   "Service prefix stripped from request paths before the tenant segment",
		Type:    String,
		Default: "",
		Env:     "TENANT_PATH_PREFIX",
	},
	{
		Name:    "TENANT_DEFAULT",
		Short:   "Tenant used when the path carries no tenant segment (empty = none)",
		Type:    String,
		Default: "",
		Env:     "TENANT_DEFAULT",
	},
	{
		Name:    "TENANT_SOURCE",
		Short:   "Where tenant definitions come from (static, directory)",
		Type:    String,
		Default: "static",
		Env:     "TENANT_SOURCE",
	},
	{
		Name:    "TENANTS_FILE",
		Short:   "Path to a dedicated file holding the static tenant table",
		Type:    String,
		Default: "",
		Env:     "TENANTS_FILE",
	},
	{
		Name:    "TENANT_DIRECTORY_URL",
		Short:   "Base URL of the tenant directory service",
		Type:    String,
		Default: "",
		Env:     "TENANT_DIRECTORY_URL",
	},
	{
		Name:    "TENANT_DIRECTORY_TIMEOUT",
		Short:   "Timeout for tenant directory requests",
		Type:    String,
		Default: "10s",
		Env:     "TENANT_DIRECTORY_TIMEOUT",
	},
	{
		Name:    "TENANT_DIRECTORY_TOKEN_URL",
		Short:   "OAuth2 token endpoint for directory credentials",
		Type:    String,
		Default: "",
		Env:     "TENANT_DIRECTORY_TOKEN_URL",
	},
	{
		Name:    "TENANT_DIRECTORY_CLIENT_ID",
		Short:   "OAuth2 client ID for the tenant directory",
		Type:    String,
		Default: "",
		Env:     "TENANT_DIRECTORY_CLIENT_ID",
	},
	{
		Name:    "TENANT_DIRECTORY_CLIENT_SECRET",
		Short:   "OAuth2 client secret for the tenant directory",
		Type:    String,
		Default: "",
		Env:     "TENANT_DIRECTORY_CLIENT_SECRET",
	},
	{
		Name:    "TENANT_DIRECTORY_SCOPES",
		Short:   "OAuth2 scopes requested for the tenant directory",
		Type:    StringSlice,
		Default: []string{},
		Env:     "TENANT_DIRECTORY_SCOPES",
	},

	// Authentication: mTLS
	{
		Name:    "AUTH_MTLS_ENABLED",
		Short:   "Enable mTLS authentication",
		Type:    Bool,
		Default: false,
		Env:     "AUTH_MTLS_ENABLED",
	},
	{
		Name:    "AUTH_MTLS_CA_PATHS",
		Short:   "Paths to CA certificates for client verification",
		Type:    StringSlice,
		Default: []string{},
		Env:     "AUTH_MTLS_CA_PATHS",
	},

	// Authentication: Bearer
	{
		Name:    "AUTH_BEARER_ENABLED",
		Short:   "Enable Bearer token authentication",
		Type:    Bool,
		Default: true,
		Env:     "AUTH_BEARER_ENABLED",
	},
	{
		Name:    "AUTH_LEEWAY",
		Short:   "Clock skew tolerated when validating token time claims",
		Type:    String,
		Default: "30s",
		Env:     "AUTH_LEEWAY",
	},

	// Authorization
	{
		Name:    "AUTHZ_TYPE",
		Short:   "Type of authorizer to use (roles, spicedb)",
		Type:    String,
		Default: "roles",
		Env:     "AUTHZ_TYPE",
	},
	{
		Name:    "AUTHZ_SPICEDB_ENDPOINT",
		Short:   "SpiceDB endpoint",
		Type:    String,
		Default: "localhost:50051",
		Env:     "AUTHZ_SPICEDB_ENDPOINT",
	},
	{
		Name:    "AUTHZ_SPICEDB_INSECURE",
		Short:   "Use insecure connection to SpiceDB",
		Type:    Bool,
		Default: false,
		Env:     "AUTHZ_SPICEDB_INSECURE",
	},
	{
		Name:    "AUTHZ_SPICEDB_TOKEN",
		Short:   "SpiceDB authentication token",
		Type:    String,
		Default: "",
		Env:     "AUTHZ_SPICEDB_TOKEN",
	},
	{
		Name:    "AUTHZ_SPICEDB_RESOURCE_TYPE",
		Short:   "SpiceDB resource type",
		Type:    String,
		Default: "instance",
		Env:     "AUTHZ_SPICEDB_RESOURCE_TYPE",
	},
	{
		Name:    "AUTHZ_SPICEDB_RESOURCE_ID",
		Short:   "SpiceDB resource ID",
		Type:    String,
		Default: "",
		Env:     "AUTHZ_SPICEDB_RESOURCE_ID",
	},
	{
		Name:    "AUTHZ_SPICEDB_SUBJECT_TYPE",
		Short:   "SpiceDB subject type",
		Type:    String,
		Default: "user",
		Env:     "AUTHZ_SPICEDB_SUBJECT_TYPE",
	},

	// Rules
	{
		Name:    "RULES_FILE",
		Short:   "Path to a dedicated file holding the route rules",
		Type:    String,
		Default: "",
		Env:     "RULES_FILE",
	},

	// Observability
	{
		Name:    "LOG_LEVEL",
		Short:   "Logging level",
		Type:    String,
		Default: "info",
		Env:     "LOG_LEVEL",
	},
	{
		Name:    "LOG_FORMAT",
		Short:   "Logging format (json, text)",
		Type:    String,
		Default: "json",
		Env:     "LOG_FORMAT",
	},
}
