package pairing

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ClientRepository defines the persistence contract for paired clients.
type ClientRepository interface {
	GetByID(ctx context.Context, id string) (*Client, error)
	List(ctx context.Context) ([]Client, error)
	GetAreaIDs(ctx context.Context, clientID string) ([]string, error)
	SetAreas(ctx context.Context, clientID string, areaIDs []string) error
	ListActiveByArea(ctx context.Context, areaID string) ([]string, error)
	Deactivate(ctx context.Context, id string) error
	UpdateLastSeen(ctx context.Context, id string) error
}

// SQLiteClientRepository implements ClientRepository using SQLite.
type SQLiteClientRepository struct {
	db *sql.DB
}

// NewClientRepository creates a new SQLite-backed client repository.
func NewClientRepository(db *sql.DB) *SQLiteClientRepository {
	return &SQLiteClientRepository{db: db}
}

// GetByID retrieves a client with its area assignments.
func (r *SQLiteClientRepository) GetByID(ctx context.Context, id string) (*Client, error) {
	var c Client
	var isActive int
	var createdAt string
	var lastSeen sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, device_type, device_name, is_active, created_at, last_seen_at
		 FROM clients WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.DeviceType, &c.DeviceName, &isActive, &createdAt, &lastSeen)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("getting client: %w", err)
	}

	c.IsActive = isActive != 0
	c.CreatedAt = parseTime(createdAt)
	c.LastSeenAt = parseNullTime(lastSeen)

	areas, err := r.GetAreaIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	c.AssignedAreas = areas

	return &c, nil
}

// List returns all clients (active and inactive) with area assignments.
func (r *SQLiteClientRepository) List(ctx context.Context) ([]Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, device_type, device_name, is_active, created_at, last_seen_at
		 FROM clients ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		var c Client
		var isActive int
		var createdAt string
		var lastSeen sql.NullString

		if err := rows.Scan(&c.ID, &c.Name, &c.DeviceType, &c.DeviceName,
			&isActive, &createdAt, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning client: %w", err)
		}

		c.IsActive = isActive != 0
		c.CreatedAt = parseTime(createdAt)
		c.LastSeenAt = parseNullTime(lastSeen)
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating clients: %w", err)
	}

	for i := range clients {
		areas, err := r.GetAreaIDs(ctx, clients[i].ID)
		if err != nil {
			return nil, err
		}
		clients[i].AssignedAreas = areas
	}

	if clients == nil {
		clients = []Client{}
	}
	return clients, nil
}

// GetAreaIDs returns the area IDs assigned to a client.
func (r *SQLiteClientRepository) GetAreaIDs(ctx context.Context, clientID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT area_id FROM client_areas WHERE client_id = ? ORDER BY area_id", clientID)
	if err != nil {
		return nil, fmt.Errorf("getting client areas: %w", err)
	}
	defer rows.Close()

	var areaIDs []string
	for rows.Next() {
		var areaID string
		if err := rows.Scan(&areaID); err != nil {
			return nil, fmt.Errorf("scanning area ID: %w", err)
		}
		areaIDs = append(areaIDs, areaID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating area IDs: %w", err)
	}

	if areaIDs == nil {
		areaIDs = []string{}
	}
	return areaIDs, nil
}

// SetAreas replaces all area assignments for a client. Pass an empty
// slice to remove all.
func (r *SQLiteClientRepository) SetAreas(ctx context.Context, clientID string, areaIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM client_areas WHERE client_id = ?", clientID); err != nil {
		return fmt.Errorf("clearing client areas: %w", err)
	}

	now := formatTime(time.Now())
	for _, areaID := range areaIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO client_areas (client_id, area_id, created_at) VALUES (?, ?, ?)",
			clientID, areaID, now); err != nil {
			return fmt.Errorf("assigning area %s to client: %w", areaID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing client areas: %w", err)
	}
	return nil
}

// ListActiveByArea returns the IDs of all active clients whose assigned
// areas contain the given area. Used to resolve area-scoped events.
func (r *SQLiteClientRepository) ListActiveByArea(ctx context.Context, areaID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id FROM clients c
		 JOIN client_areas ca ON ca.client_id = c.id
		 WHERE ca.area_id = ? AND c.is_active = 1
		 ORDER BY c.id`, areaID)
	if err != nil {
		return nil, fmt.Errorf("listing clients by area: %w", err)
	}
	defer rows.Close()

	var clientIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning client ID: %w", err)
		}
		clientIDs = append(clientIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating client IDs: %w", err)
	}

	if clientIDs == nil {
		clientIDs = []string{}
	}
	return clientIDs, nil
}

// Deactivate soft-deletes a client. The row is preserved for audit
// history; a deactivated client fails every authentication check.
func (r *SQLiteClientRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE clients SET is_active = 0 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deactivating client: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrClientNotFound
	}
	return nil
}

// UpdateLastSeen updates the client's last_seen_at timestamp to now.
func (r *SQLiteClientRepository) UpdateLastSeen(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE clients SET last_seen_at = ? WHERE id = ?", formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating last seen: %w", err)
	}
	return nil
}
