package token

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role represents a principal kind in the system.
type Role string

const (
	// RoleAdmin is the deployment administrator. Admin tokens are
	// short-lived and cannot be revoked before their natural expiry.
	RoleAdmin Role = "admin"

	// RoleClient is a paired device identity. Client tokens are long-lived
	// and subject to ledger-backed revocation.
	RoleClient Role = "client"
)

// Token issuer and audience tags.
const (
	issuer         = "homelink"
	audienceAdmin  = "homelink-admin"
	audienceClient = "homelink-client"
)

// Sentinel errors for token operations.
var (
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("malformed token")
	ErrTokenInvalid   = errors.New("invalid token")
)

// Claims extends JWT registered claims with the HomeLink role field.
type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// PrincipalID returns the subject of the claims.
func (c *Claims) PrincipalID() string {
	return c.Subject
}

// Service mints and verifies signed credentials.
//
// It holds the signing secret and configured lifetimes; it never touches
// the persistent store.
type Service struct {
	secret    []byte
	adminTTL  time.Duration
	clientTTL time.Duration
}

// Default lifetimes, applied when the configured TTL is zero or negative.
const (
	defaultAdminTTL  = 12 * time.Hour
	defaultClientTTL = 2 * 365 * 24 * time.Hour
)

// NewService creates a token service with the given signing secret and
// lifetimes (in hours).
func NewService(secret string, adminTTLHours, clientTTLHours int) *Service {
	adminTTL := time.Duration(adminTTLHours) * time.Hour
	if adminTTL <= 0 {
		adminTTL = defaultAdminTTL
	}
	clientTTL := time.Duration(clientTTLHours) * time.Hour
	if clientTTL <= 0 {
		clientTTL = defaultClientTTL
	}

	return &Service{
		secret:    []byte(secret),
		adminTTL:  adminTTL,
		clientTTL: clientTTL,
	}
}

// MintAdmin creates a signed administrator token for the given principal.
func (s *Service) MintAdmin(principalID string) (string, error) {
	return s.mint(principalID, RoleAdmin, audienceAdmin, s.adminTTL)
}

// MintClient creates a signed client token for the given principal.
// The caller is responsible for persisting Digest(token); the raw value
// is returned exactly once and never stored.
func (s *Service) MintClient(principalID string) (string, error) {
	return s.mint(principalID, RoleClient, audienceClient, s.clientTTL)
}

// ClientTTL returns the configured client token lifetime.
func (s *Service) ClientTTL() time.Duration {
	return s.clientTTL
}

func (s *Service) mint(principalID string, role Role, audience string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Role: role,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", role, err)
	}
	return signed, nil
}

// Verify validates a signed token and returns its claims.
//
// It checks the signature, issuer, audience (matched to the claimed role),
// and expiry. It does not consult any store: ledger-backed revocation of
// client tokens is the identity package's responsibility.
func (s *Service) Verify(raw string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
		default:
			return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
		}
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	// Audience must match the claimed role, so an admin token can never be
	// presented as a client credential or vice versa.
	if expectedAudience(claims.Role) == "" || !hasAudience(claims.Audience, expectedAudience(claims.Role)) {
		return nil, fmt.Errorf("%w: audience mismatch for role %q", ErrTokenInvalid, claims.Role)
	}

	return claims, nil
}

// Digest computes the SHA-256 hex digest of a raw token.
//
// The digest is the only persisted representation of a token; it is
// deterministic for identical input and collision-resistant.
func Digest(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

func expectedAudience(role Role) string {
	switch role {
	case RoleAdmin:
		return audienceAdmin
	case RoleClient:
		return audienceClient
	default:
		return ""
	}
}

func hasAudience(audience jwt.ClaimStrings, want string) bool {
	for _, a := range audience {
		if a == want {
			return true
		}
	}
	return false
}
