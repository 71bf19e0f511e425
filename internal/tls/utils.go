// internal/tls/utils.go
package tls

import (
	"crypto/x509"
	"fmt"
	"time"
)

// VerifyClientCertificate verifies a client leaf certificate against a CA
// pool. Extra certificates presented by the client are used as
// intermediates when building the chain.
func VerifyClientCertificate(leaf *x509.Certificate, extras []*x509.Certificate, caPool *x509.CertPool) error {
	intermediates := x509.NewCertPool()
	for _, cert := range extras {
		intermediates.AddCert(cert)
	}

	opts := x509.VerifyOptions{
		Roots:         caPool,
		Intermediates: intermediates,
		CurrentTime:   time.Now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}

	if _, err := leaf.Verify(opts); err != nil {
		return fmt.Errorf("client certificate verification failed: %w", err)
	}

	return nil
}

// ExtractSubject extracts the subject common name from a certificate
func ExtractSubject(cert *x509.Certificate) (string, error) {
	commonName := cert.Subject.CommonName
	if commonName == "" {
		return "", fmt.Errorf("certificate has no common name")
	}

	return commonName, nil
}
