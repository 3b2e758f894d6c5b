package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// UnverifiedRole is the role claim read from a token WITHOUT signature
// verification. It exists purely to choose which validation path to run
// next and is deliberately a distinct type from Claims: nothing that
// accepts a verified principal can accept an UnverifiedRole, so an
// unverified peek can never leak into an authorization decision.
type UnverifiedRole Role

// IsClient reports whether the unverified role claim names a client.
// Used only to decide whether a ledger lookup will follow verification.
func (u UnverifiedRole) IsClient() bool {
	return Role(u) == RoleClient
}

// PeekRole extracts the role claim from a token without verifying its
// signature or expiry. The result is a routing hint only; callers MUST
// still pass the raw token through Verify before trusting anything.
func PeekRole(raw string) UnverifiedRole {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return UnverifiedRole("")
	}
	return UnverifiedRole(claims.Role)
}
