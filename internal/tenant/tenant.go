// internal/tenant/tenant.go
package tenant

import (
	"fmt"
	"strings"
	"time"
)

// Definition is the declarative description of a tenant, as carried by the
// static tenants file and the directory wire format.
type Definition struct {
	// ID is the unique tenant identifier, matched case-sensitively against
	// the tenant segment of request paths.
	ID string `mapstructure:"id" json:"id"`

	// Issuer is the OIDC issuer URL tokens for this tenant must carry.
	Issuer string `mapstructure:"issuer" json:"issuer"`

	// JWKSURL overrides issuer discovery for the signing key set.
	JWKSURL string `mapstructure:"jwks_url" json:"jwks_url,omitempty"`

	// Audience, when set, must appear in the token's aud or azp claim.
	Audience string `mapstructure:"audience" json:"audience,omitempty"`

	// RolesClaim names an additional claim to include in role extraction.
	RolesClaim string `mapstructure:"roles_claim" json:"roles_claim,omitempty"`

	// Secret is a static HMAC signing secret. Mutually exclusive with
	// PublicKey; when neither is set keys come from the JWKS endpoint.
	Secret string `mapstructure:"secret" json:"secret,omitempty"`

	// PublicKey is a static PEM-encoded RSA public key.
	PublicKey string `mapstructure:"public_key" json:"public_key,omitempty"`
}

// Validate checks the definition for the invariants the registry relies on.
func (d Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("tenant id is required")
	}
	if strings.ContainsAny(d.ID, "/ ") {
		return fmt.Errorf("tenant id %q must be a single path segment", d.ID)
	}
	if d.Issuer == "" {
		return fmt.Errorf("tenant %s: issuer is required", d.ID)
	}
	if d.Secret != "" && d.PublicKey != "" {
		return fmt.Errorf("tenant %s: secret and public_key are mutually exclusive", d.ID)
	}
	return nil
}

// Tenant is a registered tenant's runtime configuration. It is immutable
// after construction; the registry replaces whole entries on reload.
type Tenant struct {
	// ID is the tenant identifier.
	ID string

	// Issuer is the expected token issuer.
	Issuer string

	// Audience is the expected token audience, empty when not enforced.
	Audience string

	// RolesClaim is an additional role-bearing claim name, empty when unset.
	RolesClaim string

	// CreatedAt is when this registry entry was built.
	CreatedAt time.Time

	// Keys verifies token signatures for this tenant.
	Keys KeySource

	def Definition
}

// New builds an immutable tenant from its definition.
func New(def Definition) (*Tenant, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	keys, err := newKeySource(def)
	if err != nil {
		return nil, err
	}
	return &Tenant{
		ID:         def.ID,
		Issuer:     def.Issuer,
		Audience:   def.Audience,
		RolesClaim: def.RolesClaim,
		CreatedAt:  time.Now(),
		Keys:       keys,
		def:        def,
	}, nil
}
