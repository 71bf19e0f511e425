// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"realmgate/internal/tenant"

	"github.com/spf13/viper"
)

// Load loads the configuration from all sources and returns the merged result
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	Settings.PopulateViperDefaults(v)

	// Set up environment variable handling
	v.SetEnvPrefix("REALMGATE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Load from config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// It's okay if the config file doesn't exist, but other errors should be reported
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Create the config object
	config := &Config{}

	// Populate server configuration
	config.Server.Address = v.GetString("SERVER_ADDR")
	shutdownTimeout, err := time.ParseDuration(v.GetString("SHUTDOWN_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	config.Server.ShutdownTimeout = shutdownTimeout

	// Populate metrics configuration
	config.Metrics.Address = v.GetString("METRICS_ADDR")

	// Populate TLS configuration
	config.TLS.Enabled = v.GetBool("TLS_ENABLED")
	config.TLS.CertPath = v.GetString("TLS_CERT_PATH")
	config.TLS.KeyPath = v.GetString("TLS_KEY_PATH")
	config.TLS.CAPath = v.GetString("TLS_CA_PATH")

	// Populate upstream configuration
	upstreamURL, err := url.Parse(v.GetString("UPSTREAM_URL"))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	config.Upstream.URL = upstreamURL

	upstreamTimeout, err := time.ParseDuration(v.GetString("UPSTREAM_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream timeout: %w", err)
	}
	config.Upstream.Timeout = upstreamTimeout

	// Populate tenancy configuration
	config.Tenancy.PathPrefix = v.GetString("TENANT_PATH_PREFIX")
	config.Tenancy.DefaultTenant = v.GetString("TENANT_DEFAULT")
	config.Tenancy.Source = v.GetString("TENANT_SOURCE")
	config.Tenancy.TenantsFile = v.GetString("TENANTS_FILE")

	config.Tenancy.Directory.URL = v.GetString("TENANT_DIRECTORY_URL")
	directoryTimeout, err := time.ParseDuration(v.GetString("TENANT_DIRECTORY_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid tenant directory timeout: %w", err)
	}
	config.Tenancy.Directory.Timeout = directoryTimeout
	config.Tenancy.Directory.TokenURL = v.GetString("TENANT_DIRECTORY_TOKEN_URL")
	config.Tenancy.Directory.ClientID = v.GetString("TENANT_DIRECTORY_CLIENT_ID")
	config.Tenancy.Directory.ClientSecret = v.GetString("TENANT_DIRECTORY_CLIENT_SECRET")
	config.Tenancy.Directory.Scopes = v.GetStringSlice("TENANT_DIRECTORY_SCOPES")

	// Static tenant table: a dedicated tenants file wins over the
	// "tenants" key of the main config file.
	switch {
	case config.Tenancy.TenantsFile != "":
		defs, err := LoadTenants(config.Tenancy.TenantsFile)
		if err != nil {
			return nil, err
		}
		config.Tenancy.Tenants = defs
	case v.IsSet("tenants"):
		if err := v.UnmarshalKey("tenants", &config.Tenancy.Tenants); err != nil {
			return nil, fmt.Errorf("failed to parse tenants: %w", err)
		}
	}

	// Populate authentication configuration
	// mTLS
	config.Auth.MTLS.Enabled = v.GetBool("AUTH_MTLS_ENABLED")
	config.Auth.MTLS.CAPaths = v.GetStringSlice("AUTH_MTLS_CA_PATHS")

	// Bearer
	config.Auth.Bearer.Enabled = v.GetBool("AUTH_BEARER_ENABLED")
	leeway, err := time.ParseDuration(v.GetString("AUTH_LEEWAY"))
	if err != nil {
		return nil, fmt.Errorf("invalid auth leeway: %w", err)
	}
	config.Auth.Leeway = leeway

	// Populate authorization configuration
	config.Authz.Type = v.GetString("AUTHZ_TYPE")
	config.Authz.SpiceDB.Endpoint = v.GetString("AUTHZ_SPICEDB_ENDPOINT")
	config.Authz.SpiceDB.Insecure = v.GetBool("AUTHZ_SPICEDB_INSECURE")
	config.Authz.SpiceDB.Token = v.GetString("AUTHZ_SPICEDB_TOKEN")
	config.Authz.SpiceDB.ResourceType = v.GetString("AUTHZ_SPICEDB_RESOURCE_TYPE")
	config.Authz.SpiceDB.ResourceID = v.GetString("AUTHZ_SPICEDB_RESOURCE_ID")
	config.Authz.SpiceDB.SubjectType = v.GetString("AUTHZ_SPICEDB_SUBJECT_TYPE")

	// Populate observability configuration
	config.Observability.LogLevel = v.GetString("LOG_LEVEL")
	config.Observability.LogFormat = v.GetString("LOG_FORMAT")

	// Route rules: a dedicated rules file wins over the "rules" key of
	// the main config file.
	config.RulesFile = v.GetString("RULES_FILE")
	switch {
	case config.RulesFile != "":
		rules, err := LoadRules(config.RulesFile)
		if err != nil {
			return nil, err
		}
		config.Rules = rules
	case v.IsSet("rules"):
		if err := v.UnmarshalKey("rules", &config.Rules); err != nil {
			return nil, fmt.Errorf("failed to parse rules: %w", err)
		}
	}

	// Validate the configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validateConfig performs validation on the loaded configuration
func validateConfig(cfg *Config) error {
	// Validate required fields
	if cfg.Upstream.URL == nil || cfg.Upstream.URL.String() == "" {
		return fmt.Errorf("upstream URL is required")
	}

	// Validate TLS configuration
	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return fmt.Errorf("TLS certificate path is required when TLS is enabled")
		}
		if cfg.TLS.KeyPath == "" {
			return fmt.Errorf("TLS key path is required when TLS is enabled")
		}

		// Check if certificate and key files exist
		if _, err := os.Stat(cfg.TLS.CertPath); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file not found: %s", cfg.TLS.CertPath)
		}
		if _, err := os.Stat(cfg.TLS.KeyPath); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file not found: %s", cfg.TLS.KeyPath)
		}
	}

	// Validate authentication configurations
	if err := validateAuthConfig(cfg); err != nil {
		return err
	}

	// Validate tenancy configuration
	if err := validateTenancyConfig(cfg); err != nil {
		return err
	}

	// Validate authorization configurations
	if err := validateAuthzConfig(cfg); err != nil {
		return err
	}

	// Validate route rules
	if err := validateRules(cfg.Rules); err != nil {
		return err
	}

	return nil
}

// validateAuthConfig validates authentication configuration
func validateAuthConfig(cfg *Config) error {
	// Validate mTLS configuration
	if cfg.Auth.MTLS.Enabled {
		if len(cfg.Auth.MTLS.CAPaths) == 0 {
			return fmt.Errorf("at least one CA path is required when mTLS is enabled")
		}

		// Check if CA files exist
		for _, caPath := range cfg.Auth.MTLS.CAPaths {
			if _, err := os.Stat(caPath); os.IsNotExist(err) {
				return fmt.Errorf("mTLS CA file not found: %s", caPath)
			}
		}
	}

	if cfg.Auth.Leeway < 0 {
		return fmt.Errorf("auth leeway must not be negative")
	}

	return nil
}

// validateTenancyConfig validates tenant resolution configuration
func validateTenancyConfig(cfg *Config) error {
	switch cfg.Tenancy.Source {
	case "static":
		// Fail fast on definitions the registry would reject at startup.
		for _, def := range cfg.Tenancy.Tenants {
			if err := def.Validate(); err != nil {
				return fmt.Errorf("invalid tenant definition: %w", err)
			}
		}
	case "directory":
		if cfg.Tenancy.Directory.URL == "" {
			return fmt.Errorf("tenant directory URL is required when the tenant source is directory")
		}
		if cfg.Tenancy.Directory.ClientID != "" && cfg.Tenancy.Directory.TokenURL == "" {
			return fmt.Errorf("tenant directory token URL is required when a directory client ID is set")
		}
	default:
		return fmt.Errorf("unknown tenant source: %s", cfg.Tenancy.Source)
	}

	return nil
}

// validateAuthzConfig validates authorization configuration
func validateAuthzConfig(cfg *Config) error {
	switch cfg.Authz.Type {
	case "roles":
		// No backend settings required.
	case "spicedb":
		if cfg.Authz.SpiceDB.Token == "" {
			return fmt.Errorf("SpiceDB token is required when using SpiceDB authorization")
		}
		if cfg.Authz.SpiceDB.ResourceID == "" {
			return fmt.Errorf("SpiceDB resource ID is required when using SpiceDB authorization")
		}
	default:
		return fmt.Errorf("unknown authorizer type: %s", cfg.Authz.Type)
	}

	return nil
}

// validateRules validates route rules
func validateRules(rules []Rule) error {
	seen := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		if rule.Name == "" {
			return fmt.Errorf("rule name is required")
		}
		if _, ok := seen[rule.Name]; ok {
			return fmt.Errorf("duplicate rule name: %s", rule.Name)
		}
		seen[rule.Name] = struct{}{}

		if len(rule.Paths) == 0 {
			return fmt.Errorf("rule %s: at least one path is required", rule.Name)
		}

		switch rule.Action {
		case "allow", "deny", "auth":
		default:
			return fmt.Errorf("rule %s: unknown action %q", rule.Name, rule.Action)
		}
	}

	return nil
}

// LoadRules loads routing rules from a dedicated rules file
func LoadRules(rulesPath string) ([]Rule, error) {
	v := viper.New()
	v.SetConfigFile(rulesPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rules []Rule
	if err := v.UnmarshalKey("rules", &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	return rules, nil
}

// LoadTenants loads the static tenant table from a dedicated tenants file
func LoadTenants(tenantsPath string) ([]tenant.Definition, error) {
	v := viper.New()
	v.SetConfigFile(tenantsPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read tenants file: %w", err)
	}

	var defs []tenant.Definition
	if err := v.UnmarshalKey("tenants", &defs); err != nil {
		return nil, fmt.Errorf("failed to parse tenants file: %w", err)
	}

	return defs, nil
}
