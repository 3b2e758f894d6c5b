package area

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// Repository defines the persistence contract for areas.
type Repository interface {
	Create(ctx context.Context, a *Area) error
	GetByID(ctx context.Context, id string) (*Area, error)
	List(ctx context.Context) ([]Area, error)
	Update(ctx context.Context, a *Area) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed area repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new area. The ID and slug are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, a *Area) error {
	if a.ID == "" {
		a.ID = "area-" + uuid.NewString()[:16]
	}
	if a.Slug == "" {
		a.Slug = Slugify(a.Name)
	}
	if err := ValidateName(a.Name); err != nil {
		return err
	}
	if err := ValidateSlug(a.Slug); err != nil {
		return err
	}

	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO areas (id, name, slug, is_enabled, sort_order, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Slug, boolToInt(a.IsEnabled), a.SortOrder,
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrSlugConflict, a.Slug)
		}
		return fmt.Errorf("creating area: %w", err)
	}

	return nil
}

// GetByID retrieves an area by its ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Area, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, is_enabled, sort_order, created_at, updated_at
		 FROM areas WHERE id = ?`, id)
	return scanArea(row.Scan)
}

// List returns all areas ordered by sort order, then name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Area, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug, is_enabled, sort_order, created_at, updated_at
		 FROM areas ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("listing areas: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	areas := []Area{}
	for rows.Next() {
		a, err := scanArea(rows.Scan)
		if err != nil {
			return nil, err
		}
		areas = append(areas, *a)
	}
	return areas, rows.Err()
}

// Update rewrites an area's mutable fields (name, slug, sort order).
func (r *SQLiteRepository) Update(ctx context.Context, a *Area) error {
	if err := ValidateName(a.Name); err != nil {
		return err
	}
	if a.Slug == "" {
		a.Slug = Slugify(a.Name)
	}
	if err := ValidateSlug(a.Slug); err != nil {
		return err
	}

	a.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx,
		`UPDATE areas SET name = ?, slug = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		a.Name, a.Slug, a.SortOrder, formatTime(a.UpdatedAt), a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrSlugConflict, a.Slug)
		}
		return fmt.Errorf("updating area: %w", err)
	}

	affected, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if affected == 0 {
		return ErrAreaNotFound
	}
	return nil
}

// SetEnabled flips an area's enabled flag.
func (r *SQLiteRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE areas SET is_enabled = ?, updated_at = ? WHERE id = ?`,
		boolToInt(enabled), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("setting area enabled flag: %w", err)
	}

	affected, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if affected == 0 {
		return ErrAreaNotFound
	}
	return nil
}

// Delete removes an area. Client assignments referencing it cascade away.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM areas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting area: %w", err)
	}

	affected, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if affected == 0 {
		return ErrAreaNotFound
	}
	return nil
}

func scanArea(scan func(dest ...any) error) (*Area, error) {
	var a Area
	var isEnabled int
	var createdAt, updatedAt string

	err := scan(&a.ID, &a.Name, &a.Slug, &isEnabled, &a.SortOrder, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAreaNotFound
		}
		return nil, fmt.Errorf("scanning area: %w", err)
	}

	a.IsEnabled = isEnabled != 0
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
