package area

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nerrad567/homelink-core/internal/infrastructure/database"
	_ "github.com/nerrad567/homelink-core/migrations"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db.DB
}

func TestRepositoryCreateAndGet(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	a := &Area{Name: "Living Room", IsEnabled: true, SortOrder: 1}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if a.ID == "" {
		t.Fatal("expected generated area ID")
	}
	if a.Slug != "living-room" {
		t.Errorf("expected derived slug living-room, got %q", a.Slug)
	}

	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Living Room" || !got.IsEnabled {
		t.Errorf("unexpected area %+v", got)
	}

	_, err = repo.GetByID(ctx, "area-missing")
	if !errors.Is(err, ErrAreaNotFound) {
		t.Errorf("expected ErrAreaNotFound, got %v", err)
	}
}

func TestRepositorySlugConflict(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, &Area{Name: "Kitchen"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := repo.Create(ctx, &Area{Name: "Kitchen!"}) // slugifies to "kitchen"
	if !errors.Is(err, ErrSlugConflict) {
		t.Errorf("expected ErrSlugConflict, got %v", err)
	}
}

func TestRepositoryListOrdering(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	for _, a := range []*Area{
		{Name: "Zeta", SortOrder: 0},
		{Name: "Alpha", SortOrder: 0},
		{Name: "First", SortOrder: -1},
	} {
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create %s failed: %v", a.Name, err)
		}
	}

	areas, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(areas) != 3 {
		t.Fatalf("expected 3 areas, got %d", len(areas))
	}
	if areas[0].Name != "First" || areas[1].Name != "Alpha" || areas[2].Name != "Zeta" {
		t.Errorf("unexpected ordering: %s, %s, %s", areas[0].Name, areas[1].Name, areas[2].Name)
	}
}

func TestRepositoryUpdate(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	a := &Area{Name: "Study"}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	a.Name = "Home Office"
	a.Slug = ""
	if err := repo.Update(ctx, a); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Home Office" || got.Slug != "home-office" {
		t.Errorf("unexpected area after update: %+v", got)
	}

	err = repo.Update(ctx, &Area{ID: "area-missing", Name: "Nope"})
	if !errors.Is(err, ErrAreaNotFound) {
		t.Errorf("expected ErrAreaNotFound, got %v", err)
	}
}

func TestRepositorySetEnabled(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	a := &Area{Name: "Garage", IsEnabled: true}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := repo.SetEnabled(ctx, a.ID, false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}
	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.IsEnabled {
		t.Error("expected area disabled")
	}
}

func TestRepositoryDelete(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	a := &Area{Name: "Attic"}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := repo.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(ctx, a.ID); !errors.Is(err, ErrAreaNotFound) {
		t.Errorf("expected area gone, got %v", err)
	}
	if err := repo.Delete(ctx, a.ID); !errors.Is(err, ErrAreaNotFound) {
		t.Errorf("expected ErrAreaNotFound on second delete, got %v", err)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Living Room", "living-room"},
		{"  Guest  Suite  ", "guest-suite"},
		{"Kid's Room #2", "kid-s-room-2"},
		{"UPPER", "upper"},
	}

	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
