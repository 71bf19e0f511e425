// internal/tenant/resolver.go
package tenant

import (
	"context"
	"errors"
	"strings"

	"realmgate/internal/observability/logging"
)

// Resolver maps request paths to tenants. The tenant identifier is the
// first path segment after the configured service prefix, compared
// case-sensitively.
type Resolver struct {
	prefix    string
	defaultID string
	registry  *Registry
	logger    *logging.Logger
}

// NewResolver creates a resolver over the registry. prefix is the path
// prefix preceding the tenant segment (may be empty); defaultTenant, when
// non-empty, answers for absent or unregistered segments and must itself be
// a registered tenant id.
func NewResolver(prefix, defaultTenant string, registry *Registry, logger *logging.Logger) *Resolver {
	return &Resolver{
		prefix:    strings.TrimSuffix(prefix, "/"),
		defaultID: defaultTenant,
		registry:  registry,
		logger:    logger.WithModule("tenant.resolver"),
	}
}

// Segment extracts the tenant identifier segment from a request path. It
// returns "" when the path does not carry one.
func (r *Resolver) Segment(path string) string {
	rest, ok := strings.CutPrefix(path, r.prefix)
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		return ""
	}
	rest = strings.TrimPrefix(rest, "/")
	segment, _, _ := strings.Cut(rest, "/")
	return segment
}

// Resolve maps a request path to its tenant. An absent or unregistered
// segment yields ErrTenantNotFound unless a default tenant is configured.
// Resolve never panics and performs no writes beyond the registry's own
// caching.
func (r *Resolver) Resolve(ctx context.Context, path string) (*Tenant, error) {
	segment := r.Segment(path)
	if segment == "" {
		if r.defaultID != "" {
			return r.registry.Get(ctx, r.defaultID)
		}
		return nil, ErrTenantNotFound
	}

	ten, err := r.registry.Get(ctx, segment)
	if errors.Is(err, ErrTenantNotFound) && r.defaultID != "" && segment != r.defaultID {
		r.logger.Debug("tenant segment unregistered, using default",
			"segment", segment, "default", r.defaultID)
		return r.registry.Get(ctx, r.defaultID)
	}
	return ten, err
}
