// internal/tls/config.go
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"realmgate/internal/observability/logging"
)

// Config holds the TLS configuration
type Config struct {
	// Logger is the logger to use
	Logger *logging.Logger

	// RootCAPath is the path to the root CA certificate
	RootCAPath string

	// AuthCAFiles is a list of paths to CA certificates for client verification
	AuthCAFiles []string

	// CertPath is the path to the server certificate
	CertPath string

	// KeyPath is the path to the server key
	KeyPath string

	// AuthCAs is the certificate pool for client verification
	AuthCAs *x509.CertPool
}

// GetTLSConfig creates a TLS configuration for the server
func (c *Config) GetTLSConfig() (*tls.Config, error) {
	c.Logger.Debug("initializing TLS configuration")

	rootCAPool := x509.NewCertPool()

	if c.RootCAPath != "" {
		rootCA, err := os.ReadFile(c.RootCAPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read root CA file: %w", err)
		}
		if !rootCAPool.AppendCertsFromPEM(rootCA) {
			return nil, fmt.Errorf("failed to parse root CA file: %s", c.RootCAPath)
		}
		c.Logger.Debug("root CA loaded for TLS", "path", c.RootCAPath)
	}

	// Client certificates stay optional at the handshake so bearer-only
	// clients can connect; the mTLS authenticator decides what a presented
	// certificate is worth.
	tlsConfig := &tls.Config{
		ClientCAs:  rootCAPool,
		ClientAuth: tls.VerifyClientCertIfGiven,
		MinVersion: tls.VersionTLS12,
	}

	if len(c.AuthCAFiles) > 0 {
		authCAPool := x509.NewCertPool()
		for _, authCAFile := range c.AuthCAFiles {
			authCA, err := os.ReadFile(authCAFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read auth CA file: %w", err)
			}
			if !authCAPool.AppendCertsFromPEM(authCA) {
				return nil, fmt.Errorf("failed to parse auth CA file: %s", authCAFile)
			}
			c.Logger.Debug("auth CA loaded for mTLS", "path", authCAFile)
		}
		c.AuthCAs = authCAPool
		tlsConfig.ClientCAs = authCAPool
		tlsConfig.VerifyPeerCertificate = c.clientChainCheck()
	} else if c.RootCAPath != "" {
		c.Logger.Warn("mTLS enabled without auth CA files, falling back to the root CA")
		c.AuthCAs = rootCAPool
	}

	c.Logger.Info("TLS configuration ready")
	return tlsConfig, nil
}

// clientChainCheck returns a callback run after standard chain
// verification. The handshake has already validated the chain against
// ClientCAs, so this only screens out degenerate chains and records the
// verified subject.
func (c *Config) clientChainCheck() func([][]byte, [][]*x509.Certificate) error {
	return func(_ [][]byte, verifiedChains [][]*x509.Certificate) error {
		if len(verifiedChains) == 0 {
			c.Logger.Debug("no client certificate provided, continuing without mTLS identity")
			return nil
		}

		if len(verifiedChains[0]) == 0 {
			return fmt.Errorf("client certificate chain is empty")
		}

		c.Logger.Debug("client certificate verified", "subject", verifiedChains[0][0].Subject.CommonName)
		return nil
	}
}
