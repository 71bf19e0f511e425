// internal/tenant/registry.go
package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"realmgate/internal/observability/logging"
	"realmgate/internal/observability/metrics"
)

// ErrTenantNotFound reports a tenant identifier with no registered
// configuration. Callers treat it as "respond unauthenticated", never as a
// fault.
var ErrTenantNotFound = errors.New("tenant not found")

// Source supplies tenant definitions to the registry: the full table at
// load time and single definitions for identifiers seen after that.
type Source interface {
	// ListTenants returns every definition the source knows about.
	ListTenants(ctx context.Context) ([]Definition, error)

	// FetchTenant returns the definition for one tenant, or
	// ErrTenantNotFound.
	FetchTenant(ctx context.Context, id string) (Definition, error)
}

// Registry is the shared tenant configuration cache. Reads are lock-cheap
// and concurrent; loads and reloads swap the whole table so readers never
// observe a partial update.
type Registry struct {
	source  Source
	logger  *logging.Logger
	metrics *metrics.Collector

	group singleflight.Group

	mu      sync.RWMutex
	tenants map[string]*Tenant
}

// NewRegistry creates an empty registry backed by the given source.
func NewRegistry(source Source, logger *logging.Logger, metricsCollector *metrics.Collector) *Registry {
	return &Registry{
		source:  source,
		logger:  logger.WithModule("tenant.registry"),
		metrics: metricsCollector,
		tenants: make(map[string]*Tenant),
	}
}

// Load populates the registry from its source at startup.
func (r *Registry) Load(ctx context.Context) error {
	return r.rebuild(ctx, "load")
}

// Reload rebuilds the registry from its source. Entries whose definition is
// unchanged keep their warmed key source; everything else is replaced.
func (r *Registry) Reload(ctx context.Context) error {
	return r.rebuild(ctx, "reload")
}

func (r *Registry) rebuild(ctx context.Context, op string) error {
	defs, err := r.source.ListTenants(ctx)
	if err != nil {
		r.metrics.RecordRegistryReload(false)
		return fmt.Errorf("%s: list tenants: %w", op, err)
	}

	next := make(map[string]*Tenant, len(defs))
	for _, def := range defs {
		if _, dup := next[def.ID]; dup {
			r.metrics.RecordRegistryReload(false)
			return fmt.Errorf("%s: duplicate tenant %q", op, def.ID)
		}
		if cur := r.lookup(def.ID); cur != nil && cur.def == def {
			next[def.ID] = cur
			continue
		}
		ten, err := New(def)
		if err != nil {
			r.metrics.RecordRegistryReload(false)
			return fmt.Errorf("%s: %w", op, err)
		}
		next[def.ID] = ten
	}

	r.mu.Lock()
	r.tenants = next
	r.mu.Unlock()

	r.metrics.RecordRegistryReload(true)
	r.metrics.SetRegistrySize(len(next))
	r.logger.Info("tenant registry rebuilt", "op", op, "tenants", len(next))

	r.warmKeySources(ctx, next)
	return nil
}

// Get returns the tenant registered under id, matching case-sensitively.
// Identifiers not in the cache are fetched from the source once, shared
// across concurrent callers; a source miss is ErrTenantNotFound.
func (r *Registry) Get(ctx context.Context, id string) (*Tenant, error) {
	if id == "" {
		r.metrics.RecordTenantLookup("miss")
		return nil, ErrTenantNotFound
	}
	if ten := r.lookup(id); ten != nil {
		r.metrics.RecordTenantLookup("hit")
		return ten, nil
	}

	v, err, _ := r.group.Do(id, func() (any, error) {
		if ten := r.lookup(id); ten != nil {
			return ten, nil
		}
		def, err := r.source.FetchTenant(ctx, id)
		if err != nil {
			return nil, err
		}
		ten, err := New(def)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.tenants[ten.ID] = ten
		size := len(r.tenants)
		r.mu.Unlock()
		r.metrics.SetRegistrySize(size)
		r.logger.Info("tenant fetched", "tenant", ten.ID,
			"issuer", logging.RedactStringURL(ten.Issuer))
		return ten, nil
	})
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			r.metrics.RecordTenantLookup("miss")
			return nil, ErrTenantNotFound
		}
		r.metrics.RecordTenantLookup("error")
		return nil, fmt.Errorf("fetch tenant %s: %w", id, err)
	}
	r.metrics.RecordTenantLookup("fetched")
	return v.(*Tenant), nil
}

// Len returns the number of registered tenants.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tenants)
}

func (r *Registry) lookup(id string) *Tenant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tenants[id]
}

// warmKeySources builds key sources ahead of the first request. Failures
// are logged and left pending; the next request for the tenant retries.
func (r *Registry) warmKeySources(ctx context.Context, tenants map[string]*Tenant) {
	var wg sync.WaitGroup
	for _, ten := range tenants {
		wg.Add(1)
		go func(ten *Tenant) {
			defer wg.Done()
			if _, err := ten.Keys.Keyfunc(ctx); err != nil {
				r.logger.Warn("tenant key source not ready", "tenant", ten.ID, logging.Err(err))
			}
		}(ten)
	}
	wg.Wait()
}
