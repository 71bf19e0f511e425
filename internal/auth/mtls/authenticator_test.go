// internal/auth/mtls/authenticator_test.go
package mtls

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"realmgate/internal/auth"
	"realmgate/internal/claims"
	"realmgate/internal/observability/logging"
	"realmgate/internal/observability/metrics"
	tlsconfig "realmgate/internal/tls"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger("error", "text")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	return logger
}

type testCert struct {
	cert *x509.Certificate
	key  *rsa.PrivateKey
}

// issueCert creates a certificate signed by parent, or self-signed when
// parent is nil.
func issueCert(t *testing.T, cn string, isCA bool, parent *testCert) testCert {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		BasicConstraintsValid: true,
	}
	if cn != "" {
		tmpl.Subject = pkix.Name{CommonName: cn}
	}
	if isCA {
		tmpl.IsCA = true
		tmpl.KeyUsage = x509.KeyUsageCertSign
	} else {
		tmpl.KeyUsage = x509.KeyUsageDigitalSignature
		tmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	}

	signerCert, signerKey := tmpl, key
	if parent != nil {
		signerCert, signerKey = parent.cert, parent.key
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, signerCert, &key.PublicKey, signerKey)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return testCert{cert: cert, key: key}
}

func poolOf(certs ...testCert) *x509.CertPool {
	pool := x509.NewCertPool()
	for _, c := range certs {
		pool.AddCert(c.cert)
	}
	return pool
}

func newAuthenticator(t *testing.T, pool *x509.CertPool) *Authenticator {
	t.Helper()
	a, err := New(Config{
		Enabled:   true,
		TLSConfig: &tlsconfig.Config{AuthCAs: pool},
	}, testLogger(t), metrics.NewCollector())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

// capture records whether the next handler ran and what identity it saw.
type capture struct {
	called   bool
	identity *claims.Identity
	authType auth.AuthType
}

func (c *capture) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.identity = auth.IdentityFromContext(r.Context())
		c.authType = auth.AuthTypeFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func doTLS(a *Authenticator, state *tls.ConnectionState) (*capture, *httptest.ResponseRecorder) {
	next := &capture{}
	req := httptest.NewRequest(http.MethodGet, "/api/org1/events", nil)
	req.TLS = state
	rec := httptest.NewRecorder()
	a.GetMiddleware(next.handler()).ServeHTTP(rec, req)
	return next, rec
}

func TestDisabledPassesThrough(t *testing.T) {
	a, err := New(Config{}, testLogger(t), metrics.NewCollector())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	next, rec := doTLS(a, nil)
	if !next.called {
		t.Fatal("next handler not called")
	}
	if next.identity != nil {
		t.Fatalf("identity = %+v, want none", next.identity)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequestsWithoutClientCertificatePassThrough(t *testing.T) {
	ca := issueCert(t, "test-ca", true, nil)
	a := newAuthenticator(t, poolOf(ca))

	// Plain HTTP.
	next, _ := doTLS(a, nil)
	if !next.called || next.identity != nil {
		t.Fatalf("plain request: called=%v identity=%+v, want pass-through", next.called, next.identity)
	}

	// TLS without a client certificate.
	next, _ = doTLS(a, &tls.ConnectionState{})
	if !next.called || next.identity != nil {
		t.Fatalf("certless TLS: called=%v identity=%+v, want pass-through", next.called, next.identity)
	}
}

func TestAuthenticatesHandshakeVerifiedChain(t *testing.T) {
	ca := issueCert(t, "test-ca", true, nil)
	leaf := issueCert(t, "batch-runner", false, &ca)
	a := newAuthenticator(t, poolOf(ca))

	next, rec := doTLS(a, &tls.ConnectionState{
		PeerCertificates: []*x509.Certificate{leaf.cert},
		VerifiedChains:   [][]*x509.Certificate{{leaf.cert, ca.cert}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if next.identity == nil {
		t.Fatal("no identity set")
	}
	if next.identity.Subject != "batch-runner" {
		t.Errorf("subject = %q, want batch-runner", next.identity.Subject)
	}
	if next.identity.Provider != "mtls" {
		t.Errorf("provider = %q, want mtls", next.identity.Provider)
	}
	if next.identity.Tenant != "" || len(next.identity.Roles) != 0 {
		t.Errorf("mTLS identity carries tenant/roles: %+v", next.identity)
	}
	if next.authType != auth.AuthTypeMTLS {
		t.Errorf("auth type = %q, want %q", next.authType, auth.AuthTypeMTLS)
	}
}

func TestClientIntermediatesUsedInVerification(t *testing.T) {
	root := issueCert(t, "test-root", true, nil)
	intermediate := issueCert(t, "test-intermediate", true, &root)
	leaf := issueCert(t, "batch-runner", false, &intermediate)

	// Only the root is trusted; the client must supply the intermediate.
	a := newAuthenticator(t, poolOf(root))

	next, rec := doTLS(a, &tls.ConnectionState{
		PeerCertificates: []*x509.Certificate{leaf.cert, intermediate.cert},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if next.identity == nil || next.identity.Subject != "batch-runner" {
		t.Fatalf("identity = %+v, want subject batch-runner", next.identity)
	}
}

func TestRejectsUntrustedCertificate(t *testing.T) {
	trusted := issueCert(t, "trusted-ca", true, nil)
	rogue := issueCert(t, "rogue-ca", true, nil)
	leaf := issueCert(t, "intruder", false, &rogue)

	a := newAuthenticator(t, poolOf(trusted))

	next, rec := doTLS(a, &tls.ConnectionState{
		PeerCertificates: []*x509.Certificate{leaf.cert},
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if next.called {
		t.Fatal("next handler called for an untrusted certificate")
	}
}

func TestRejectsCertificateWithoutCommonName(t *testing.T) {
	ca := issueCert(t, "test-ca", true, nil)
	leaf := issueCert(t, "", false, &ca)
	a := newAuthenticator(t, poolOf(ca))

	next, rec := doTLS(a, &tls.ConnectionState{
		PeerCertificates: []*x509.Certificate{leaf.cert},
		VerifiedChains:   [][]*x509.Certificate{{leaf.cert, ca.cert}},
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if next.called {
		t.Fatal("next handler called for a certificate without a common name")
	}
}

func TestNewRequiresTrustAnchors(t *testing.T) {
	if _, err := New(Config{Enabled: true}, testLogger(t), metrics.NewCollector()); err == nil {
		t.Fatal("expected an error when no CA material is configured")
	}
}
