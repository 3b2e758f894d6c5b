package pairing

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionRepository defines the persistence contract for pairing sessions.
//
// The conditional transitions (MarkVerified, Complete) return the number
// of affected rows: under concurrency, exactly one caller observes 1 and
// every other caller observes 0.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	MarkVerified(ctx context.Context, id, deviceName, deviceType string, now time.Time) (int64, error)
	Complete(ctx context.Context, sessionID string, client *Client, tok *ClientToken) (int64, error)
	MarkExpired(ctx context.Context, id string) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
	DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error)
}

// SQLiteSessionRepository implements SessionRepository using SQLite.
type SQLiteSessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SQLite-backed session repository.
func NewSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

// Create inserts a new pending pairing session. The ID is generated if
// empty. A PIN collision with another pending session returns
// ErrPINConflict so the caller can regenerate and retry.
func (r *SQLiteSessionRepository) Create(ctx context.Context, session *Session) error {
	if session.ID == "" {
		session.ID = "ps-" + uuid.NewString()[:16]
	}
	if session.Status == "" {
		session.Status = StatusPending
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pairing_sessions (id, pin, status, device_name, device_type, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.PIN, string(session.Status),
		nullString(session.DeviceName), nullString(session.DeviceType),
		formatTime(session.CreatedAt), formatTime(session.ExpiresAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: pin %s", ErrPINConflict, session.PIN)
		}
		return fmt.Errorf("creating pairing session: %w", err)
	}

	return nil
}

// GetByID retrieves a pairing session by its ID.
func (r *SQLiteSessionRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	return scanSession(r.db.QueryRowContext(ctx,
		`SELECT id, pin, status, device_name, device_type, created_at, expires_at,
		        verified_at, client_id, client_token_digest
		 FROM pairing_sessions WHERE id = ?`, id))
}

// MarkVerified advances a session from pending to verified, recording the
// device metadata. The update is conditional on the session still being
// pending and inside its PIN window; the affected-row count tells the
// caller whether it won the transition.
func (r *SQLiteSessionRepository) MarkVerified(ctx context.Context, id, deviceName, deviceType string, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE pairing_sessions
		 SET status = ?, device_name = ?, device_type = ?, verified_at = ?
		 WHERE id = ? AND status = ? AND expires_at > ?`,
		string(StatusVerified), deviceName, deviceType, formatTime(now),
		id, string(StatusPending), formatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("marking session verified: %w", err)
	}

	affected, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return affected, nil
}

// Complete atomically advances a verified session to completed and creates
// the client, its area assignments, and its token ledger row in a single
// transaction. Returns 0 affected rows (and no side effects) if the
// session was not in verified status.
func (r *SQLiteSessionRepository) Complete(ctx context.Context, sessionID string, client *Client, tok *ClientToken) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning completion transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	result, err := tx.ExecContext(ctx,
		`UPDATE pairing_sessions
		 SET status = ?, client_id = ?, client_token_digest = ?
		 WHERE id = ? AND status = ?`,
		string(StatusCompleted), client.ID, tok.TokenDigest,
		sessionID, string(StatusVerified),
	)
	if err != nil {
		return 0, fmt.Errorf("marking session completed: %w", err)
	}

	affected, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if affected == 0 {
		return 0, nil
	}

	now := formatTime(client.CreatedAt)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO clients (id, name, device_type, device_name, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		client.ID, client.Name, client.DeviceType, client.DeviceName,
		boolToInt(client.IsActive), now,
	); err != nil {
		return 0, fmt.Errorf("creating client: %w", err)
	}

	for _, areaID := range client.AssignedAreas {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO client_areas (client_id, area_id, created_at) VALUES (?, ?, ?)",
			client.ID, areaID, now,
		); err != nil {
			return 0, fmt.Errorf("assigning area %s to client: %w", areaID, err)
		}
	}

	snapshot, err := json.Marshal(tok.AreasSnapshot)
	if err != nil {
		return 0, fmt.Errorf("encoding areas snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO client_tokens (id, client_id, token_digest, areas_snapshot, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tok.ID, tok.ClientID, tok.TokenDigest, string(snapshot),
		formatTime(tok.CreatedAt), formatTime(tok.ExpiresAt),
	); err != nil {
		return 0, fmt.Errorf("creating client token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing completion: %w", err)
	}
	return affected, nil
}

// MarkExpired lazily expires a non-terminal session whose deadline has
// passed. Terminal sessions are never touched.
func (r *SQLiteSessionRepository) MarkExpired(ctx context.Context, id string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE pairing_sessions SET status = ?
		 WHERE id = ? AND status IN (?, ?)`,
		string(StatusExpired), id, string(StatusPending), string(StatusVerified),
	)
	if err != nil {
		return 0, fmt.Errorf("marking session expired: %w", err)
	}

	affected, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return affected, nil
}

// Delete removes a non-terminal session. Terminal sessions are preserved
// for audit; deleting one affects zero rows.
func (r *SQLiteSessionRepository) Delete(ctx context.Context, id string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM pairing_sessions WHERE id = ? AND status IN (?, ?)`,
		id, string(StatusPending), string(StatusVerified),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting pairing session: %w", err)
	}

	affected, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return affected, nil
}

// DeleteExpiredPending removes pending sessions whose PIN window has
// closed. Completed sessions are retained; verified-but-never-completed
// sessions expire lazily on next use and are removed by a later sweep
// once marked expired.
func (r *SQLiteSessionRepository) DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM pairing_sessions
		 WHERE expires_at <= ? AND status IN (?, ?)`,
		formatTime(now), string(StatusPending), string(StatusExpired),
	)
	if err != nil {
		return 0, fmt.Errorf("sweeping expired sessions: %w", err)
	}

	affected, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return affected, nil
}

// scanSession scans a session from a single row query.
func scanSession(row *sql.Row) (*Session, error) {
	var s Session
	var status string
	var deviceName, deviceType, verifiedAt, clientID, tokenDigest sql.NullString
	var createdAt, expiresAt string

	err := row.Scan(&s.ID, &s.PIN, &status, &deviceName, &deviceType,
		&createdAt, &expiresAt, &verifiedAt, &clientID, &tokenDigest)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("scanning pairing session: %w", err)
	}

	s.Status = Status(status)
	if deviceName.Valid {
		s.DeviceName = deviceName.String
	}
	if deviceType.Valid {
		s.DeviceType = deviceType.String
	}
	s.CreatedAt = parseTime(createdAt)
	s.ExpiresAt = parseTime(expiresAt)
	s.VerifiedAt = parseNullTime(verifiedAt)
	if clientID.Valid {
		s.ClientID = clientID.String
	}
	if tokenDigest.Valid {
		s.ClientTokenDigest = tokenDigest.String
	}

	return &s, nil
}
