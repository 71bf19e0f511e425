// internal/authz/roles/authorizer.go
package roles

import (
	"fmt"

	"realmgate/internal/authz"
	"realmgate/internal/observability/logging"
)

// Authorizer authorizes callers by role set: a requirement is satisfied
// when its role list intersects the caller's roles. An empty role list
// means authentication only and always allows.
type Authorizer struct {
	logger *logging.Logger
}

// New creates a new role-set authorizer
func New(logger *logging.Logger) *Authorizer {
	return &Authorizer{
		logger: logger.WithModule("authz.roles"),
	}
}

// Authorize checks whether the identity holds one of the required roles
func (a *Authorizer) Authorize(req *authz.Request) *authz.Response {
	if req.Identity == nil {
		return &authz.Response{
			Decision: authz.Unauthorized,
			Reason:   "No identity provided",
		}
	}

	required := req.Requirement.Roles
	if len(required) == 0 {
		return &authz.Response{
			Decision: authz.Allow,
			Reason:   "Authentication only, no roles required",
		}
	}

	if req.Identity.HasAnyRole(required...) {
		return &authz.Response{
			Decision: authz.Allow,
			Reason:   "Role requirement satisfied",
		}
	}

	return &authz.Response{
		Decision: authz.Deny,
		Reason:   fmt.Sprintf("caller holds none of the required roles %v", required),
	}
}
