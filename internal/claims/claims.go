// internal/claims/claims.go
package claims

import (
	"fmt"
	"sort"
	"strings"
)

// Set holds the claims of a verified token, keyed by claim name. It is
// built once per request and read-only from then on.
type Set map[string]any

// String returns a string claim, or "" when the claim is absent or not a
// string.
func (s Set) String(name string) string {
	v, _ := s[name].(string)
	return v
}

// Strings returns a claim as a list of strings. A JSON list yields its
// string elements; a single space-separated string (the scope convention)
// is split on whitespace.
func (s Set) Strings(name string) []string {
	switch v := s[name].(type) {
	case []any:
		return stringItems(v)
	case []string:
		return append([]string(nil), v...)
	case string:
		return strings.Fields(v)
	}
	return nil
}

// Has reports whether the claim is present, regardless of its type.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Roles flattens every role-bearing claim into a deduplicated, sorted set.
// It understands the Keycloak realm_access/resource_access layout, a flat
// "roles" list, and any extra claim names the tenant declares.
func (s Set) Roles(extra ...string) []string {
	var roles []string
	if realm, ok := s["realm_access"].(map[string]any); ok {
		roles = append(roles, anyStrings(realm["roles"])...)
	}
	if resources, ok := s["resource_access"].(map[string]any); ok {
		for _, raw := range resources {
			client, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			roles = append(roles, anyStrings(client["roles"])...)
		}
	}
	roles = append(roles, s.Strings("roles")...)
	for _, name := range extra {
		if name == "" || name == "roles" {
			continue
		}
		roles = append(roles, s.Strings(name)...)
	}
	return dedupeSorted(roles)
}

// MissingClaimError reports a mandatory claim absent from a verified token.
type MissingClaimError struct {
	Claim string
}

func (e *MissingClaimError) Error() string {
	return fmt.Sprintf("mandatory claim %q missing", e.Claim)
}

func anyStrings(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	return stringItems(list)
}

func stringItems(list []any) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func dedupeSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
