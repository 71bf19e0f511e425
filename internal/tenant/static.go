// internal/tenant/static.go
package tenant

import "context"

// StaticSource serves tenant definitions from a fixed table, typically
// loaded from the tenants file at startup.
type StaticSource struct {
	defs  []Definition
	index map[string]Definition
}

// NewStaticSource builds a source over the given definitions.
func NewStaticSource(defs []Definition) *StaticSource {
	index := make(map[string]Definition, len(defs))
	for _, def := range defs {
		index[def.ID] = def
	}
	return &StaticSource{defs: defs, index: index}
}

// ListTenants returns the table in file order.
func (s *StaticSource) ListTenants(context.Context) ([]Definition, error) {
	return append([]Definition(nil), s.defs...), nil
}

// FetchTenant returns the definition for id, or ErrTenantNotFound.
func (s *StaticSource) FetchTenant(_ context.Context, id string) (Definition, error) {
	def, ok := s.index[id]
	if !ok {
		return Definition{}, ErrTenantNotFound
	}
	return def, nil
}
