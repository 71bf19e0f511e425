// internal/claims/identity.go
package claims

// Identity is the request-scoped caller derived from a verified token.
// It is owned by a single request and never shared.
type Identity struct {
	// Subject is the unique identifier for the caller within its tenant.
	Subject string

	// Tenant is the identifier of the tenant the token was validated for.
	Tenant string

	// Provider is the authentication method that produced this identity
	// (e.g. "bearer", "mtls").
	Provider string

	// Name is the display name claim, empty when absent.
	Name string

	// Email is the email claim, empty when absent.
	Email string

	// PreferredUsername is the preferred_username claim, empty when absent.
	PreferredUsername string

	// Roles is the flattened, sorted role set of the caller.
	Roles []string

	// Claims is the full verified claim set backing this identity.
	Claims Set
}

// FromSet derives the caller identity for one request. The subject claim is
// mandatory and its absence is a MissingClaimError; every other field is
// simply empty when its claim is absent. rolesClaims names additional
// tenant-specific claims to include in the role set.
func FromSet(set Set, tenant, provider string, rolesClaims ...string) (*Identity, error) {
	sub := set.String("sub")
	if sub == "" {
		return nil, &MissingClaimError{Claim: "sub"}
	}
	return &Identity{
		Subject:           sub,
		Tenant:            tenant,
		Provider:          provider,
		Name:              set.String("name"),
		Email:             set.String("email"),
		PreferredUsername: set.String("preferred_username"),
		Roles:             set.Roles(rolesClaims...),
		Claims:            set,
	}, nil
}

// DisplayName returns the most human-readable name available for the
// caller, falling back to the subject.
func (i *Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	if i.PreferredUsername != "" {
		return i.PreferredUsername
	}
	return i.Subject
}

// HasRole reports whether the caller holds the given role.
func (i *Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the caller holds at least one of the given
// roles. An empty argument list reports false.
func (i *Identity) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if i.HasRole(role) {
			return true
		}
	}
	return false
}
