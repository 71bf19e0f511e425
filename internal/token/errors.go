// internal/token/errors.go
package token

import "fmt"

// Kind classifies a token validation failure.
type Kind int

const (
	// KindMalformed means the token could not be decoded or lacks a
	// required claim.
	KindMalformed Kind = iota

	// KindSignatureMismatch means the signature does not verify against
	// the tenant's keys.
	KindSignatureMismatch

	// KindExpired means the token's expiry has passed.
	KindExpired

	// KindNotYetValid means the token's nbf or iat lies in the future.
	KindNotYetValid

	// KindIssuerMismatch means the iss claim is not the tenant's issuer.
	KindIssuerMismatch

	// KindAudienceMismatch means neither aud nor azp carries the tenant's
	// audience.
	KindAudienceMismatch
)

// String returns the snake_case name of the kind, as used in logs and
// metric labels.
func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindSignatureMismatch:
		return "signature_mismatch"
	case KindExpired:
		return "expired"
	case KindNotYetValid:
		return "not_yet_valid"
	case KindIssuerMismatch:
		return "issuer_mismatch"
	case KindAudienceMismatch:
		return "audience_mismatch"
	default:
		return "unknown"
	}
}

// ValidationError reports why a token was rejected. Validation failures are
// terminal for the request; nothing in this package retries or re-fetches
// tokens.
type ValidationError struct {
	Kind Kind
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("token validation failed (%s): %v", e.Kind, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
