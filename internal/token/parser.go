// internal/token/parser.go
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/exp/slices"

	"realmgate/internal/claims"
	"realmgate/internal/observability/logging"
	"realmgate/internal/tenant"
)

// Config holds token parser settings
type Config struct {
	// Leeway absorbs clock skew between this process and token issuers
	Leeway time.Duration
}

// Parser validates bearer tokens against a tenant's configuration and
// decodes their claims.
type Parser struct {
	leeway time.Duration
	logger *logging.Logger
}

// New creates a new token parser
func New(config *Config, logger *logging.Logger) *Parser {
	return &Parser{
		leeway: config.Leeway,
		logger: logger.WithModule("token.parser"),
	}
}

// Parse verifies rawToken against the tenant's keys, issuer and audience
// and returns the decoded claim set. Failures are *ValidationError, except
// that a key source that cannot be built surfaces as
// tenant.ErrKeySourceUnavailable: the tenant is known, the token is
// undecided.
func (p *Parser) Parse(ctx context.Context, rawToken string, ten *tenant.Tenant) (claims.Set, error) {
	kf, err := ten.Keys.Keyfunc(ctx)
	if err != nil {
		return nil, err
	}

	mapClaims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(rawToken, mapClaims, kf,
		jwt.WithValidMethods(ten.Keys.Methods()),
		jwt.WithIssuer(ten.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(p.leeway),
	)
	if err != nil {
		verr := classify(err)
		p.logger.Debug("token rejected", "tenant", ten.ID, "kind", verr.Kind.String(), logging.Err(err))
		return nil, verr
	}

	set := claims.Set(mapClaims)
	if ten.Audience != "" && !audienceSatisfied(set, ten.Audience) {
		verr := &ValidationError{
			Kind: KindAudienceMismatch,
			Err:  fmt.Errorf("audience %q not present in aud or azp", ten.Audience),
		}
		p.logger.Debug("token rejected", "tenant", ten.ID, "kind", verr.Kind.String())
		return nil, verr
	}

	return set, nil
}

// audienceSatisfied checks aud and azp for the expected audience. The aud
// claim may be a single string or a list.
func audienceSatisfied(set claims.Set, audience string) bool {
	if set.String("azp") == audience {
		return true
	}
	return slices.Contains(audienceValues(set["aud"]), audience)
}

func audienceValues(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// classify maps golang-jwt sentinel errors onto the validation taxonomy.
func classify(err error) *ValidationError {
	kind := KindMalformed
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		kind = KindMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		// Unverifiable covers keys the tenant's key set does not hold,
		// e.g. a token minted for another tenant.
		kind = KindSignatureMismatch
	case errors.Is(err, jwt.ErrTokenExpired):
		kind = KindExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		kind = KindNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		kind = KindIssuerMismatch
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		kind = KindAudienceMismatch
	}
	return &ValidationError{Kind: kind, Err: err}
}
