package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// IdentityClaims is the subset of id_token claims consumers display.
type IdentityClaims struct {
	Subject     string
	PhoneNumber string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// ParseIdentity extracts display claims from an id_token without
// verifying its signature. The partner verifies the token server-side on
// every call; this client has no issuer metadata to verify against, so
// the result must never be used to make trust decisions.
func ParseIdentity(idToken string) (*IdentityClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, errors.Wrap(err, "[ParseIdentity] parsing id token")
	}

	identity := &IdentityClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		identity.Subject = sub
	}
	if phone, ok := claims["phone_number"].(string); ok {
		identity.PhoneNumber = phone
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		identity.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}
	return identity, nil
}
