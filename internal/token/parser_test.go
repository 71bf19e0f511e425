// internal/token/parser_test.go
package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/golang-jwt/jwt/v5"

	"realmgate/internal/observability/logging"
	"realmgate/internal/tenant"
)

const testIssuer = "https://idp.example.com/realms/org1"

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger("error", "text")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	return logger
}

func testParser(t *testing.T, leeway time.Duration) *Parser {
	t.Helper()
	return New(&Config{Leeway: leeway}, testLogger(t))
}

func secretTenant(t *testing.T, id, issuer, secret string) *tenant.Tenant {
	t.Helper()
	ten, err := tenant.New(tenant.Definition{ID: id, Issuer: issuer, Secret: secret})
	if err != nil {
		t.Fatalf("tenant.New: %v", err)
	}
	return ten
}

func signHS256(t *testing.T, secret string, payload jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func tokenClaims(issuer string, mutate func(jwt.MapClaims)) jwt.MapClaims {
	now := time.Now()
	payload := jwt.MapClaims{
		"iss": issuer,
		"sub": "user-1",
		"iat": now.Add(-time.Minute).Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	if mutate != nil {
		mutate(payload)
	}
	return payload
}

func TestParseValidToken(t *testing.T) {
	parser := testParser(t, 0)
	ten := secretTenant(t, "org1", testIssuer, "org1-secret")

	raw := signHS256(t, "org1-secret", tokenClaims(testIssuer, func(c jwt.MapClaims) {
		c["name"] = "Ada Lovelace"
	}))

	set, err := parser.Parse(context.Background(), raw, ten)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := set.String("sub"); got != "user-1" {
		t.Errorf("sub = %q, want user-1", got)
	}
	if got := set.String("name"); got != "Ada Lovelace" {
		t.Errorf("name = %q, want Ada Lovelace", got)
	}
}

func TestParseClassifiesFailures(t *testing.T) {
	parser := testParser(t, 0)
	ten := secretTenant(t, "org1", testIssuer, "org1-secret")

	tests := []struct {
		name string
		raw  string
		want Kind
	}{
		{
			name: "garbage",
			raw:  "definitely-not-a-jwt",
			want: KindMalformed,
		},
		{
			name: "missing expiry",
			raw: signHS256(t, "org1-secret", tokenClaims(testIssuer, func(c jwt.MapClaims) {
				delete(c, "exp")
			})),
			want: KindMalformed,
		},
		{
			name: "wrong secret",
			raw:  signHS256(t, "other-secret", tokenClaims(testIssuer, nil)),
			want: KindSignatureMismatch,
		},
		{
			name: "expired",
			raw: signHS256(t, "org1-secret", tokenClaims(testIssuer, func(c jwt.MapClaims) {
				c["exp"] = time.Now().Add(-time.Hour).Unix()
			})),
			want: KindExpired,
		},
		{
			name: "not valid yet",
			raw: signHS256(t, "org1-secret", tokenClaims(testIssuer, func(c jwt.MapClaims) {
				c["nbf"] = time.Now().Add(time.Hour).Unix()
			})),
			want: KindNotYetValid,
		},
		{
			name: "issuer mismatch",
			raw:  signHS256(t, "org1-secret", tokenClaims("https://rogue.example.com", nil)),
			want: KindIssuerMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(context.Background(), tt.raw, ten)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Parse error = %v, want *ValidationError", err)
			}
			if verr.Kind != tt.want {
				t.Errorf("Kind = %s, want %s", verr.Kind, tt.want)
			}
		})
	}
}

func TestParseCrossTenantToken(t *testing.T) {
	parser := testParser(t, 0)
	org1 := secretTenant(t, "org1", "https://idp.example.com/realms/org1", "org1-secret")
	org2 := secretTenant(t, "org2", "https://idp.example.com/realms/org2", "org2-secret")

	raw := signHS256(t, "org2-secret", tokenClaims(org2.Issuer, nil))

	if _, err := parser.Parse(context.Background(), raw, org2); err != nil {
		t.Fatalf("Parse against issuing tenant: %v", err)
	}

	_, err := parser.Parse(context.Background(), raw, org1)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Parse against other tenant: err = %v, want *ValidationError", err)
	}
	if verr.Kind != KindSignatureMismatch && verr.Kind != KindIssuerMismatch {
		t.Errorf("Kind = %s, want signature or issuer mismatch", verr.Kind)
	}
}

func TestParseAudience(t *testing.T) {
	parser := testParser(t, 0)
	ten, err := tenant.New(tenant.Definition{
		ID:       "org1",
		Issuer:   testIssuer,
		Secret:   "org1-secret",
		Audience: "calendar-api",
	})
	if err != nil {
		t.Fatalf("tenant.New: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
		wantOK bool
	}{
		{"aud string match", func(c jwt.MapClaims) { c["aud"] = "calendar-api" }, true},
		{"aud list match", func(c jwt.MapClaims) { c["aud"] = []string{"other", "calendar-api"} }, true},
		{"azp match", func(c jwt.MapClaims) { c["azp"] = "calendar-api" }, true},
		{"aud mismatch", func(c jwt.MapClaims) { c["aud"] = "other-api" }, false},
		{"aud absent", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := signHS256(t, "org1-secret", tokenClaims(testIssuer, tt.mutate))
			_, err := parser.Parse(context.Background(), raw, ten)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("Parse: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Kind != KindAudienceMismatch {
				t.Fatalf("Parse error = %v, want audience mismatch", err)
			}
		})
	}
}

func TestParseLeewayAbsorbsClockSkew(t *testing.T) {
	ten := secretTenant(t, "org1", testIssuer, "org1-secret")
	raw := signHS256(t, "org1-secret", tokenClaims(testIssuer, func(c jwt.MapClaims) {
		c["exp"] = time.Now().Add(-30 * time.Second).Unix()
	}))

	if _, err := testParser(t, 0).Parse(context.Background(), raw, ten); err == nil {
		t.Fatal("Parse with zero leeway accepted an expired token")
	}
	if _, err := testParser(t, 2*time.Minute).Parse(context.Background(), raw, ten); err != nil {
		t.Fatalf("Parse with leeway: %v", err)
	}
}

func TestParseRejectsUnexpectedAlgorithm(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	ten, err := tenant.New(tenant.Definition{ID: "org1", Issuer: testIssuer, PublicKey: string(pemBytes)})
	if err != nil {
		t.Fatalf("tenant.New: %v", err)
	}
	parser := testParser(t, 0)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, tokenClaims(testIssuer, nil)).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := parser.Parse(context.Background(), signed, ten); err != nil {
		t.Fatalf("Parse RS256: %v", err)
	}

	// An HMAC token is not acceptable for an RSA tenant, whatever it claims.
	raw := signHS256(t, "org1-secret", tokenClaims(testIssuer, nil))
	_, err = parser.Parse(context.Background(), raw, ten)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Parse HS256: err = %v, want *ValidationError", err)
	}
	if verr.Kind != KindSignatureMismatch {
		t.Errorf("Kind = %s, want %s", verr.Kind, KindSignatureMismatch)
	}
}

func TestParseJWKSBackedTenant(t *testing.T) {
	orgKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate org key: %v", err)
	}
	rogueKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rogue key: %v", err)
	}

	jwk, err := jwkset.NewJWKFromKey(&orgKey.PublicKey, jwkset.JWKOptions{
		Metadata: jwkset.JWKMetadataOptions{KID: "org1-key", ALG: jwkset.AlgRS256, USE: jwkset.UseSig},
	})
	if err != nil {
		t.Fatalf("build jwk: %v", err)
	}
	store := jwkset.NewMemoryStorage()
	if err := store.KeyWrite(context.Background(), jwk); err != nil {
		t.Fatalf("store jwk: %v", err)
	}
	jwks, err := store.JSONPublic(context.Background())
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(jwks)
	}))
	defer srv.Close()

	ten, err := tenant.New(tenant.Definition{ID: "org1", Issuer: testIssuer, JWKSURL: srv.URL})
	if err != nil {
		t.Fatalf("tenant.New: %v", err)
	}
	parser := testParser(t, 0)
	ctx := context.Background()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, tokenClaims(testIssuer, nil))
	tok.Header["kid"] = "org1-key"
	signed, err := tok.SignedString(orgKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	set, err := parser.Parse(ctx, signed, ten)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := set.String("sub"); got != "user-1" {
		t.Errorf("sub = %q, want user-1", got)
	}

	// A token signed by a key outside the tenant's set must not verify.
	rogue := jwt.NewWithClaims(jwt.SigningMethodRS256, tokenClaims(testIssuer, nil))
	rogue.Header["kid"] = "rogue-key"
	rogueSigned, err := rogue.SignedString(rogueKey)
	if err != nil {
		t.Fatalf("sign rogue: %v", err)
	}
	_, err = parser.Parse(ctx, rogueSigned, ten)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Parse rogue: err = %v, want *ValidationError", err)
	}
	if verr.Kind != KindSignatureMismatch {
		t.Errorf("Kind = %s, want %s", verr.Kind, KindSignatureMismatch)
	}
}

func TestParseKeySourceOutageIsNotAValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ten, err := tenant.New(tenant.Definition{ID: "org1", Issuer: testIssuer, JWKSURL: srv.URL})
	if err != nil {
		t.Fatalf("tenant.New: %v", err)
	}

	raw := signHS256(t, "whatever", tokenClaims(testIssuer, nil))
	_, err = testParser(t, 0).Parse(context.Background(), raw, ten)
	if !errors.Is(err, tenant.ErrKeySourceUnavailable) {
		t.Fatalf("Parse: err = %v, want ErrKeySourceUnavailable", err)
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		t.Fatalf("key source outage classified as a validation failure: %v", err)
	}
}
