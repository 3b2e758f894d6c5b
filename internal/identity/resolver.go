package identity

import (
	"context"
	"errors"

	"github.com/nerrad567/homelink-core/internal/infrastructure/logging"
	"github.com/nerrad567/homelink-core/internal/pairing"
	"github.com/nerrad567/homelink-core/internal/token"
)

// TokenLedger is the slice of the revocation ledger the resolver needs.
type TokenLedger interface {
	GetByDigest(ctx context.Context, digest string) (*pairing.ClientToken, error)
	UpdateLastUsed(ctx context.Context, id string) error
}

// ClientDirectory is the slice of the client store the resolver needs.
type ClientDirectory interface {
	GetByID(ctx context.Context, id string) (*pairing.Client, error)
	GetAreaIDs(ctx context.Context, clientID string) ([]string, error)
	UpdateLastSeen(ctx context.Context, id string) error
}

// Resolver turns a raw bearer token into a Principal.
//
// Admin tokens are pure JWT: signature and expiry decide everything.
// Client tokens additionally pass through the revocation ledger, and the
// ledger always wins: a structurally valid, unexpired JWT whose digest
// is revoked is dead.
type Resolver struct {
	tokens  *token.Service
	ledger  TokenLedger
	clients ClientDirectory
	adminID string
	logger  *logging.Logger
}

// NewResolver creates a resolver. adminID is the configured admin
// username, the only identity admin tokens may carry.
func NewResolver(tokens *token.Service, ledger TokenLedger, clients ClientDirectory, adminID string, logger *logging.Logger) *Resolver {
	return &Resolver{
		tokens:  tokens,
		ledger:  ledger,
		clients: clients,
		adminID: adminID,
		logger:  logger,
	}
}

// Resolve authenticates a raw bearer token.
//
// The unverified role claim is peeked first, but only to choose the
// resolution path; both paths re-verify the token cryptographically and
// cross-check the role against the claims before trusting anything.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*Principal, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}

	if token.PeekRole(raw).IsClient() {
		return r.resolveClient(ctx, raw)
	}
	return r.resolveAdmin(raw)
}

func (r *Resolver) resolveAdmin(raw string) (*Principal, error) {
	claims, err := r.verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.Role != token.RoleAdmin {
		return nil, ErrTokenInvalid
	}
	if claims.Subject != r.adminID {
		return nil, ErrTokenInvalid
	}

	return &Principal{ID: claims.Subject, Role: token.RoleAdmin}, nil
}

func (r *Resolver) resolveClient(ctx context.Context, raw string) (*Principal, error) {
	claims, err := r.verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.Role != token.RoleClient {
		return nil, ErrTokenInvalid
	}

	row, err := r.ledger.GetByDigest(ctx, token.Digest(raw))
	if err != nil {
		if errors.Is(err, pairing.ErrTokenNotFound) {
			// Verified signature but no ledger row: a token this hub
			// never issued, or one whose ledger row was purged.
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if row.IsRevoked {
		return nil, ErrTokenRevoked
	}
	if row.ClientID != claims.Subject {
		return nil, ErrTokenInvalid
	}

	client, err := r.clients.GetByID(ctx, row.ClientID)
	if err != nil {
		if errors.Is(err, pairing.ErrClientNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if !client.IsActive {
		return nil, ErrClientInactive
	}

	areas, err := r.clients.GetAreaIDs(ctx, client.ID)
	if err != nil {
		return nil, err
	}

	// Liveness bookkeeping is best-effort: a failed write never blocks
	// an otherwise valid request.
	if err := r.ledger.UpdateLastUsed(ctx, row.ID); err != nil {
		r.logger.Debug("token last-used update failed", "token_id", row.ID, "error", err)
	}
	if err := r.clients.UpdateLastSeen(ctx, client.ID); err != nil {
		r.logger.Debug("client last-seen update failed", "client_id", client.ID, "error", err)
	}

	return &Principal{
		ID:      client.ID,
		Role:    token.RoleClient,
		Areas:   areas,
		TokenID: row.ID,
	}, nil
}

// verify maps token-package verification failures onto identity errors.
func (r *Resolver) verify(raw string) (*token.Claims, error) {
	claims, err := r.tokens.Verify(raw)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, token.ErrTokenMalformed):
			return nil, ErrMalformedToken
		default:
			return nil, ErrTokenInvalid
		}
	}
	return claims, nil
}
