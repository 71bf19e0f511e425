// internal/authz/types.go
package authz

import (
	"context"

	"realmgate/internal/claims"
)

// Decision represents an authorization decision
type Decision int

const (
	// Allow indicates the request is allowed
	Allow Decision = iota
	// Deny indicates the request is denied
	Deny
	// Unauthorized indicates the request is unauthorized (no identity)
	Unauthorized
	// Error indicates an error occurred during authorization
	Error
)

// String returns the decision name as used in logs and metric labels
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case Unauthorized:
		return "unauthorized"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Requirement is the data-driven authorization declaration attached to a
// route rule. Roles drives the role-set authorizer; Permission and Resource
// drive relationship-based backends. An empty Requirement means
// authentication only.
type Requirement struct {
	// Roles is satisfied by a caller holding at least one of them
	Roles []string

	// Permission is the permission to check on relationship backends
	Permission string

	// Resource is the resource the permission applies to
	Resource string
}

// Request represents an authorization request
type Request struct {
	// Identity is the authenticated caller to authorize
	Identity *claims.Identity

	// Requirement is the declaration the caller must satisfy
	Requirement Requirement

	// Context is the request context
	Context context.Context
}

// Response represents an authorization response
type Response struct {
	// Decision is the authorization decision
	Decision Decision

	// Reason provides additional information about the decision
	Reason string

	// Error is set if an error occurred during authorization
	Error error
}

// Authorizer defines the interface for authorization backends
type Authorizer interface {
	// Authorize checks whether the identity satisfies the requirement
	Authorize(req *Request) *Response
}
