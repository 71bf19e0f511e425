// internal/tenant/keys.go
package tenant

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// ErrKeySourceUnavailable reports that a tenant is known but its signing
// keys cannot currently be obtained. It is an infrastructure failure, not a
// token validation failure.
var ErrKeySourceUnavailable = errors.New("tenant key source unavailable")

// KeySource provides the verification keys for one tenant's tokens.
type KeySource interface {
	// Keyfunc returns the verification keyfunc, building the underlying
	// key set on first use. Failure to build is reported as
	// ErrKeySourceUnavailable and retried on the next call.
	Keyfunc(ctx context.Context) (jwt.Keyfunc, error)

	// Methods lists the signing algorithms tokens may use with this source.
	Methods() []string
}

func newKeySource(def Definition) (KeySource, error) {
	switch {
	case def.Secret != "":
		return &secretKeys{secret: []byte(def.Secret)}, nil
	case def.PublicKey != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(def.PublicKey))
		if err != nil {
			return nil, fmt.Errorf("tenant %s: parse public key: %w", def.ID, err)
		}
		return &publicKeys{key: key}, nil
	default:
		return &jwksKeys{issuer: def.Issuer, jwksURL: def.JWKSURL}, nil
	}
}

// secretKeys verifies HMAC-signed tokens with a static shared secret.
type secretKeys struct {
	secret []byte
}

func (s *secretKeys) Keyfunc(context.Context) (jwt.Keyfunc, error) {
	return func(*jwt.Token) (any, error) { return s.secret, nil }, nil
}

func (s *secretKeys) Methods() []string {
	return []string{"HS256", "HS384", "HS512"}
}

// publicKeys verifies RSA-signed tokens with a static public key.
type publicKeys struct {
	key *rsa.PublicKey
}

func (p *publicKeys) Keyfunc(context.Context) (jwt.Keyfunc, error) {
	return func(*jwt.Token) (any, error) { return p.key, nil }, nil
}

func (p *publicKeys) Methods() []string {
	return []string{"RS256", "RS384", "RS512"}
}

var jwksMethods = []string{
	"RS256", "RS384", "RS512",
	"ES256", "ES384", "ES512",
	"PS256", "PS384", "PS512",
}

// jwksKeys verifies tokens against the tenant's JWKS endpoint. The key set
// is fetched on first use and kept refreshed in the background; concurrent
// first uses share a single build.
type jwksKeys struct {
	issuer  string
	jwksURL string

	group singleflight.Group

	mu sync.RWMutex
	kf keyfunc.Keyfunc
}

func (j *jwksKeys) Keyfunc(ctx context.Context) (jwt.Keyfunc, error) {
	j.mu.RLock()
	kf := j.kf
	j.mu.RUnlock()
	if kf != nil {
		return kf.Keyfunc, nil
	}

	v, err, _ := j.group.Do("build", func() (any, error) {
		j.mu.RLock()
		kf := j.kf
		j.mu.RUnlock()
		if kf != nil {
			return kf, nil
		}
		kf, err := j.build(ctx)
		if err != nil {
			return nil, err
		}
		j.mu.Lock()
		j.kf = kf
		j.mu.Unlock()
		return kf, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySourceUnavailable, err)
	}
	return v.(keyfunc.Keyfunc).Keyfunc, nil
}

func (j *jwksKeys) Methods() []string {
	return jwksMethods
}

func (j *jwksKeys) build(ctx context.Context) (keyfunc.Keyfunc, error) {
	url := j.jwksURL
	if url == "" {
		discovered, err := discoverJWKSURL(ctx, j.issuer)
		if err != nil {
			return nil, err
		}
		url = discovered
	}
	// The keyfunc refresh goroutine must outlive the request that
	// triggered the build.
	kf, err := keyfunc.NewDefaultCtx(context.WithoutCancel(ctx), []string{url})
	if err != nil {
		return nil, fmt.Errorf("fetch jwks from %s: %w", url, err)
	}
	return kf, nil
}

// discoverJWKSURL resolves the jwks_uri advertised by the issuer's OIDC
// discovery document.
func discoverJWKSURL(ctx context.Context, issuer string) (string, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return "", fmt.Errorf("discover issuer %s: %w", issuer, err)
	}
	var meta struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return "", fmt.Errorf("decode provider metadata for %s: %w", issuer, err)
	}
	if meta.JWKSURI == "" {
		return "", fmt.Errorf("issuer %s advertises no jwks_uri", issuer)
	}
	return meta.JWKSURI, nil
}
