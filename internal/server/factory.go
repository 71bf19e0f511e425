// internal/server/factory.go
package server

import (
	"context"
	"crypto/tls"
	"fmt"

	"realmgate/internal/auth/manager"
	"realmgate/internal/authz"
	"realmgate/internal/authz/roles"
	"realmgate/internal/authz/spicedb"
	"realmgate/internal/config"
	"realmgate/internal/observability"
	"realmgate/internal/observability/logging"
	"realmgate/internal/proxy/router"
	"realmgate/internal/tenant"
	"realmgate/internal/tenant/directory"
	tlsconfig "realmgate/internal/tls"
	"realmgate/internal/token"
)

// NewFromConfig creates a new server from configuration. The context bounds
// the initial tenant load.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	// Initialize observability
	obs, err := observability.NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	logger := obs.Logger

	// Initialize TLS configuration
	var tlsSetup *tlsconfig.Config
	var tlsCfg *tls.Config
	if cfg.TLS.Enabled {
		tlsSetup = &tlsconfig.Config{
			Logger:      logger,
			RootCAPath:  cfg.TLS.CAPath,
			AuthCAFiles: cfg.Auth.MTLS.CAPaths,
			CertPath:    cfg.TLS.CertPath,
			KeyPath:     cfg.TLS.KeyPath,
		}

		tlsCfg, err = tlsSetup.GetTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS configuration: %w", err)
		}
	}

	// Initialize the tenant registry and resolver
	source, err := newTenantSource(cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := tenant.NewRegistry(source, logger, obs.Metrics)
	if err := registry.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load tenants: %w", err)
	}

	resolver := tenant.NewResolver(cfg.Tenancy.PathPrefix, cfg.Tenancy.DefaultTenant, registry, logger)

	// Initialize the token parser
	parser := token.New(&token.Config{Leeway: cfg.Auth.Leeway}, logger)

	// Initialize authentication manager
	authManager, err := manager.NewManagerFromConfig(cfg, tlsSetup, resolver, parser, logger, obs.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authentication manager: %w", err)
	}

	// Initialize authorizer
	authorizer, err := newAuthorizer(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize router
	routerConfig := router.Config{
		UpstreamURL:     cfg.Upstream.URL,
		UpstreamTimeout: cfg.Upstream.Timeout,
		Rules:           convertRules(cfg.Rules),
	}
	proxyRouter := router.New(routerConfig, authorizer, logger, obs.Metrics)

	// Create server configuration
	serverConfig := Config{
		Address:         cfg.Server.Address,
		MetricsAddress:  cfg.Metrics.Address,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	serverConfig.TLS.Enabled = cfg.TLS.Enabled
	serverConfig.TLS.Config = tlsCfg
	serverConfig.TLS.CertPath = cfg.TLS.CertPath
	serverConfig.TLS.KeyPath = cfg.TLS.KeyPath

	// Create complete middleware chain: observability -> auth -> router
	handler := obs.Middleware(authManager.Middleware(proxyRouter))

	// Create and return the server
	srv := New(serverConfig, handler, obs.MetricsHandler(), logger)
	srv.registry = registry
	return srv, nil
}

// newTenantSource builds the tenant definition source named by the config
func newTenantSource(cfg *config.Config, logger *logging.Logger) (tenant.Source, error) {
	switch cfg.Tenancy.Source {
	case "directory":
		client, err := directory.New(&directory.Config{
			BaseURL:      cfg.Tenancy.Directory.URL,
			Timeout:      cfg.Tenancy.Directory.Timeout,
			TokenURL:     cfg.Tenancy.Directory.TokenURL,
			ClientID:     cfg.Tenancy.Directory.ClientID,
			ClientSecret: cfg.Tenancy.Directory.ClientSecret,
			Scopes:       cfg.Tenancy.Directory.Scopes,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create tenant directory client: %w", err)
		}
		return client, nil
	case "static":
		if cfg.Tenancy.TenantsFile != "" {
			return &tenantFileSource{path: cfg.Tenancy.TenantsFile}, nil
		}
		return tenant.NewStaticSource(cfg.Tenancy.Tenants), nil
	default:
		return nil, fmt.Errorf("unknown tenant source: %s", cfg.Tenancy.Source)
	}
}

// tenantFileSource re-reads the tenants file on every listing so a registry
// reload picks up edits without a restart.
type tenantFileSource struct {
	path string
}

func (s *tenantFileSource) ListTenants(context.Context) ([]tenant.Definition, error) {
	return config.LoadTenants(s.path)
}

func (s *tenantFileSource) FetchTenant(_ context.Context, id string) (tenant.Definition, error) {
	defs, err := config.LoadTenants(s.path)
	if err != nil {
		return tenant.Definition{}, err
	}

	for _, def := range defs {
		if def.ID == id {
			return def, nil
		}
	}

	return tenant.Definition{}, tenant.ErrTenantNotFound
}

// newAuthorizer builds the authorization backend named by the config
func newAuthorizer(cfg *config.Config, logger *logging.Logger) (authz.Authorizer, error) {
	switch cfg.Authz.Type {
	case "roles":
		return roles.New(logger), nil
	case "spicedb":
		spiceCfg := spicedb.Config{
			Endpoint:     cfg.Authz.SpiceDB.Endpoint,
			Insecure:     cfg.Authz.SpiceDB.Insecure,
			Token:        cfg.Authz.SpiceDB.Token,
			ResourceType: cfg.Authz.SpiceDB.ResourceType,
			ResourceID:   cfg.Authz.SpiceDB.ResourceID,
			SubjectType:  cfg.Authz.SpiceDB.SubjectType,
		}

		client, err := spicedb.NewClient(spiceCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create SpiceDB client: %w", err)
		}
		return spicedb.New(spiceCfg, client, logger), nil
	default:
		return nil, fmt.Errorf("unknown authorizer type: %s", cfg.Authz.Type)
	}
}

// convertRules converts config.Rule to router.Rule
func convertRules(configRules []config.Rule) []router.Rule {
	routerRules := make([]router.Rule, len(configRules))
	for i, rule := range configRules {
		routerRules[i] = router.Rule{
			Name:          rule.Name,
			Action:        rule.Action,
			Paths:         rule.Paths,
			MatchPrefix:   rule.MatchPrefix,
			Methods:       rule.Methods,
			RequiredRoles: rule.RequiredRoles,
			Permission:    rule.Permission,
			Resource:      rule.Resource,
		}
	}
	return routerRules
}
