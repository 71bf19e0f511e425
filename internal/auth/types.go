// internal/auth/types.go
package auth

import (
	"net/http"
)

// Authenticator defines the interface for authentication methods
type Authenticator interface {
	// Name returns the name of this authenticator
	Name() string

	// GetMiddleware returns an http.Handler middleware that performs authentication
	GetMiddleware(next http.Handler) http.Handler
}
