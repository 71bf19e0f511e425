// internal/auth/mtls/authenticator.go
package mtls

import (
	"crypto/x509"
	"fmt"
	"net/http"
	"os"

	"realmgate/internal/auth"
	"realmgate/internal/claims"
	"realmgate/internal/observability/logging"
	"realmgate/internal/observability/metrics"
	"realmgate/internal/tls"
)

// Authenticator implements mTLS authentication for infrastructure clients
// that present a client certificate instead of a bearer token. The subject
// is the certificate common name; such callers carry no tenant and no
// roles, so they satisfy authentication-only rules but never role
// requirements.
type Authenticator struct {
	logger  *logging.Logger
	metrics *metrics.Collector
	enabled bool
	authCAs *x509.CertPool
}

// Config holds mTLS authenticator configuration
type Config struct {
	// Enabled indicates whether mTLS authentication is enabled
	Enabled bool

	// CAPaths is a list of paths to CA certificates for client verification
	CAPaths []string

	// TLSConfig is the TLS configuration to use (ensures same CA pool is used)
	TLSConfig *tls.Config
}

// New creates a new mTLS authenticator
func New(config Config, logger *logging.Logger, metrics *metrics.Collector) (*Authenticator, error) {
	logger = logger.WithModule("auth.mtls")

	if !config.Enabled {
		return &Authenticator{
			logger:  logger,
			metrics: metrics,
			enabled: false,
		}, nil
	}

	// Prefer the server TLS config's CA pool so the handshake and the
	// authenticator agree on trust.
	if config.TLSConfig != nil && config.TLSConfig.AuthCAs != nil {
		return &Authenticator{
			logger:  logger,
			metrics: metrics,
			enabled: true,
			authCAs: config.TLSConfig.AuthCAs,
		}, nil
	}

	if len(config.CAPaths) == 0 {
		return nil, fmt.Errorf("mTLS authentication enabled but no CA paths provided")
	}

	authCAs := x509.NewCertPool()
	for _, caPath := range config.CAPaths {
		logger.Debug("loading CA certificate", "path", caPath)

		caCert, err := os.ReadFile(caPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read mTLS CA certificate %s: %w", caPath, err)
		}
		if !authCAs.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse mTLS CA certificate %s", caPath)
		}
	}

	return &Authenticator{
		logger:  logger,
		metrics: metrics,
		enabled: true,
		authCAs: authCAs,
	}, nil
}

// Name returns the name of this authenticator
func (a *Authenticator) Name() string {
	return "mtls"
}

// GetMiddleware returns an http.Handler middleware that performs mTLS authentication
func (a *Authenticator) GetMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		logger := logging.LoggerFromContext(ctx)
		if logger == nil {
			logger = a.logger
		}

		// Plain TLS or no client certificate: not an mTLS caller, later
		// authenticators get their turn.
		if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		leaf, err := a.verifiedLeaf(r)
		if err != nil {
			logger.Error("client certificate verification failed", logging.Err(err))
			a.metrics.RecordAuthentication(a.Name(), "", false)
			http.Error(w, "Client certificate verification failed", http.StatusUnauthorized)
			return
		}

		commonName, err := tls.ExtractSubject(leaf)
		if err != nil {
			logger.Error("client certificate rejected", logging.Err(err))
			a.metrics.RecordAuthentication(a.Name(), "", false)
			http.Error(w, "Client certificate has no common name", http.StatusUnauthorized)
			return
		}

		identity := &claims.Identity{
			Subject:  commonName,
			Provider: a.Name(),
		}

		logger.Debug("mTLS authentication successful", "subject", commonName)
		a.metrics.RecordAuthentication(a.Name(), "", true)

		ctx = auth.ContextWithIdentity(ctx, identity)
		ctx = auth.ContextWithAuthType(ctx, auth.AuthTypeMTLS)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// verifiedLeaf returns the client's leaf certificate after verifying it
// against the authenticator's CA pool. A chain already verified during the
// TLS handshake is trusted as-is.
func (a *Authenticator) verifiedLeaf(r *http.Request) (*x509.Certificate, error) {
	if len(r.TLS.VerifiedChains) > 0 && len(r.TLS.VerifiedChains[0]) > 0 {
		return r.TLS.VerifiedChains[0][0], nil
	}

	leaf := r.TLS.PeerCertificates[0]
	if err := tls.VerifyClientCertificate(leaf, r.TLS.PeerCertificates[1:], a.authCAs); err != nil {
		return nil, err
	}

	return leaf, nil
}
