// internal/authz/spicedb/authorizer.go
package spicedb

import (
	"realmgate/internal/authz"
	"realmgate/internal/observability/logging"

	v1pb "github.com/authzed/authzed-go/proto/authzed/api/v1"
	"github.com/authzed/authzed-go/v1"
)

// Authorizer implements authorization using SpiceDB
type Authorizer struct {
	client       *authzed.Client
	resourceType string
	resourceID   string
	subjectType  string
	logger       *logging.Logger
}

// Config holds SpiceDB authorizer configuration
type Config struct {
	// Endpoint is the SpiceDB endpoint
	Endpoint string

	// Insecure indicates whether to use an insecure connection
	Insecure bool

	// Token is the SpiceDB authentication token
	Token string

	// ResourceType is the SpiceDB resource type
	ResourceType string

	// ResourceID is the resource ID used when a rule names none
	ResourceID string

	// SubjectType is the SpiceDB subject type
	SubjectType string
}

// New creates a new SpiceDB authorizer
func New(config Config, client *authzed.Client, logger *logging.Logger) *Authorizer {
	return &Authorizer{
		client:       client,
		resourceType: config.ResourceType,
		resourceID:   config.ResourceID,
		subjectType:  config.SubjectType,
		logger:       logger.WithModule("authz.spicedb"),
	}
}

// Authorize checks the requirement's permission for the caller's subject.
// Backend failures surface as authz.Error, which the middleware maps to
// 503 rather than denying outright.
func (a *Authorizer) Authorize(req *authz.Request) *authz.Response {
	if req.Identity == nil {
		return &authz.Response{
			Decision: authz.Unauthorized,
			Reason:   "No identity provided",
		}
	}

	resourceID := req.Requirement.Resource
	if resourceID == "" {
		resourceID = a.resourceID
	}

	checkReq := &v1pb.CheckPermissionRequest{
		Resource: &v1pb.ObjectReference{
			ObjectType: a.resourceType,
			ObjectId:   resourceID,
		},
		Permission: req.Requirement.Permission,
		Subject: &v1pb.SubjectReference{
			Object: &v1pb.ObjectReference{
				ObjectType: a.subjectType,
				ObjectId:   req.Identity.Subject,
			},
		},
	}

	resp, err := a.client.CheckPermission(req.Context, checkReq)
	if err != nil {
		a.logger.Error("permission check against SpiceDB failed",
			logging.Err(err),
			"subject", req.Identity.Subject,
			"resource", resourceID,
			"permission", req.Requirement.Permission,
		)
		return &authz.Response{
			Decision: authz.Error,
			Reason:   "Error checking permission",
			Error:    err,
		}
	}

	if resp.GetPermissionship() == v1pb.CheckPermissionResponse_PERMISSIONSHIP_HAS_PERMISSION {
		return &authz.Response{
			Decision: authz.Allow,
			Reason:   "Permission granted",
		}
	}

	return &authz.Response{
		Decision: authz.Deny,
		Reason:   "Permission denied",
	}
}
