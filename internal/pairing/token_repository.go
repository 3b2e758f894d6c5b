package pairing

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// TokenRepository defines the persistence contract for the client token
// revocation ledger.
type TokenRepository interface {
	GetByDigest(ctx context.Context, digest string) (*ClientToken, error)
	Revoke(ctx context.Context, id, reason string) error
	RevokeAllForClient(ctx context.Context, clientID, reason string) (int64, error)
	UpdateLastUsed(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SQLiteTokenRepository implements TokenRepository using SQLite.
type SQLiteTokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new SQLite-backed token ledger.
func NewTokenRepository(db *sql.DB) *SQLiteTokenRepository {
	return &SQLiteTokenRepository{db: db}
}

// GetByDigest retrieves a ledger row by token digest. This is the lookup
// performed on every authenticated client request.
func (r *SQLiteTokenRepository) GetByDigest(ctx context.Context, digest string) (*ClientToken, error) {
	var t ClientToken
	var snapshot, lastUsed, revokedAt, revokedReason sql.NullString
	var isRevoked int
	var createdAt, expiresAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, client_id, token_digest, areas_snapshot, created_at, expires_at,
		        last_used_at, is_revoked, revoked_at, revoked_reason
		 FROM client_tokens WHERE token_digest = ?`, digest,
	).Scan(&t.ID, &t.ClientID, &t.TokenDigest, &snapshot, &createdAt, &expiresAt,
		&lastUsed, &isRevoked, &revokedAt, &revokedReason)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("getting client token by digest: %w", err)
	}

	t.IsRevoked = isRevoked != 0
	if snapshot.Valid && snapshot.String != "" {
		if err := json.Unmarshal([]byte(snapshot.String), &t.AreasSnapshot); err != nil {
			return nil, fmt.Errorf("decoding areas snapshot: %w", err)
		}
	}
	t.CreatedAt = parseTime(createdAt)
	t.ExpiresAt = parseTime(expiresAt)
	t.LastUsedAt = parseNullTime(lastUsed)
	t.RevokedAt = parseNullTime(revokedAt)
	if revokedReason.Valid {
		t.RevokedReason = revokedReason.String
	}

	return &t, nil
}

// Revoke marks a single token as revoked with a reason. The flag flips
// once: revoking an already-revoked token is a no-op and the original
// reason is preserved.
func (r *SQLiteTokenRepository) Revoke(ctx context.Context, id, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE client_tokens SET is_revoked = 1, revoked_at = ?, revoked_reason = ?
		 WHERE id = ? AND is_revoked = 0`,
		formatTime(time.Now()), reason, id)
	if err != nil {
		return fmt.Errorf("revoking client token: %w", err)
	}
	return nil
}

// RevokeAllForClient marks every non-revoked token for a client as
// revoked, returning how many ledger rows it flipped. Used when an
// administrator revokes a client's access.
func (r *SQLiteTokenRepository) RevokeAllForClient(ctx context.Context, clientID, reason string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE client_tokens SET is_revoked = 1, revoked_at = ?, revoked_reason = ?
		 WHERE client_id = ? AND is_revoked = 0`,
		formatTime(time.Now()), reason, clientID)
	if err != nil {
		return 0, fmt.Errorf("revoking client tokens: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}

// UpdateLastUsed updates the token's last_used_at timestamp to now.
func (r *SQLiteTokenRepository) UpdateLastUsed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE client_tokens SET last_used_at = ? WHERE id = ?",
		formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating token last used: %w", err)
	}
	return nil
}

// DeleteExpired removes ledger rows past their natural expiry, freeing
// storage. Revoked rows inside their lifetime are retained for audit.
func (r *SQLiteTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM client_tokens WHERE expires_at <= ?", formatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("deleting expired tokens: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}
