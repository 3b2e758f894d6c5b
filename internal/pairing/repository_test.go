package pairing

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

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

func seedArea(t *testing.T, db *sql.DB, id, name string) {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.Exec(
		`INSERT INTO areas (id, name, slug, is_enabled, sort_order, created_at, updated_at)
		 VALUES (?, ?, ?, 1, 0, ?, ?)`,
		id, name, name, now, now,
	)
	if err != nil {
		t.Fatalf("seeding area %s: %v", id, err)
	}
}

func pendingSession(pin string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		PIN:       pin,
		Status:    StatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// pairedClient walks a session through verification and completion,
// returning the created client and ledger IDs.
func pairedClient(t *testing.T, db *sql.DB, pin, name, digest string, areas []string) (string, string) {
	t.Helper()
	ctx := context.Background()
	repo := NewSessionRepository(db)

	session := pendingSession(pin, time.Minute)
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("creating session: %v", err)
	}
	if _, err := repo.MarkVerified(ctx, session.ID, name+" device", "tablet", time.Now()); err != nil {
		t.Fatalf("verifying session: %v", err)
	}

	now := time.Now()
	client := &Client{
		ID:            "cl-" + pin,
		Name:          name,
		DeviceType:    "tablet",
		DeviceName:    name + " device",
		AssignedAreas: areas,
		IsActive:      true,
		CreatedAt:     now,
	}
	tok := &ClientToken{
		ID:            "ct-" + pin,
		ClientID:      client.ID,
		TokenDigest:   digest,
		AreasSnapshot: areas,
		CreatedAt:     now,
		ExpiresAt:     now.Add(24 * time.Hour),
	}
	affected, err := repo.Complete(ctx, session.ID, client, tok)
	if err != nil {
		t.Fatalf("completing session: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected completion to affect 1 row, got %d", affected)
	}
	return client.ID, tok.ID
}

func TestSessionRepositoryCreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	session := pendingSession("123456", 5*time.Minute)
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected generated session ID")
	}

	got, err := repo.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.PIN != "123456" {
		t.Errorf("expected PIN 123456, got %q", got.PIN)
	}
	if got.Status != StatusPending {
		t.Errorf("expected pending status, got %q", got.Status)
	}
	if got.VerifiedAt != nil {
		t.Error("expected nil VerifiedAt on fresh session")
	}

	_, err = repo.GetByID(ctx, "ps-missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionRepositoryPINConflict(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	first := pendingSession("555555", 5*time.Minute)
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	dup := pendingSession("555555", 5*time.Minute)
	err := repo.Create(ctx, dup)
	if !errors.Is(err, ErrPINConflict) {
		t.Fatalf("expected ErrPINConflict, got %v", err)
	}

	// Uniqueness only holds among pending sessions: once the first is
	// expired the PIN is reusable.
	if _, err := repo.MarkExpired(ctx, first.ID); err != nil {
		t.Fatalf("MarkExpired failed: %v", err)
	}
	if err := repo.Create(ctx, pendingSession("555555", 5*time.Minute)); err != nil {
		t.Fatalf("expected PIN reuse after expiry, got %v", err)
	}
}

func TestSessionRepositoryMarkVerifiedSingleWinner(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	session := pendingSession("777777", 5*time.Minute)
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const racers = 8
	var wg sync.WaitGroup
	wins := make(chan int64, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			affected, err := repo.MarkVerified(ctx, session.ID, "Tablet", "tablet", time.Now())
			if err != nil {
				t.Errorf("MarkVerified error: %v", err)
				return
			}
			wins <- affected
		}()
	}
	wg.Wait()
	close(wins)

	total := int64(0)
	for n := range wins {
		total += n
	}
	if total != 1 {
		t.Errorf("expected exactly one winner, got %d", total)
	}
}

func TestSessionRepositoryMarkVerifiedRespectsExpiry(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	session := pendingSession("888888", -time.Minute) // already expired
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	affected, err := repo.MarkVerified(ctx, session.ID, "Tablet", "tablet", time.Now())
	if err != nil {
		t.Fatalf("MarkVerified failed: %v", err)
	}
	if affected != 0 {
		t.Errorf("expected 0 affected rows past expiry, got %d", affected)
	}
}

func TestSessionRepositoryCompleteAtomic(t *testing.T) {
	db := testDB(t)
	seedArea(t, db, "area-kitchen", "kitchen")

	clientID, _ := pairedClient(t, db, "111111", "Kitchen Tablet", "digest-a", []string{"area-kitchen"})

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM clients WHERE id = ?`, clientID).Scan(&count); err != nil {
		t.Fatalf("counting clients: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 client row, got %d", count)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM client_areas WHERE client_id = ?`, clientID).Scan(&count); err != nil {
		t.Fatalf("counting client areas: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 client_areas row, got %d", count)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM client_tokens WHERE client_id = ?`, clientID).Scan(&count); err != nil {
		t.Fatalf("counting tokens: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 ledger row, got %d", count)
	}
}

func TestSessionRepositoryCompleteRequiresVerified(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	session := pendingSession("222222", 5*time.Minute)
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	now := time.Now()
	client := &Client{ID: "cl-nope", Name: "Nope", DeviceType: "tablet", IsActive: true, CreatedAt: now}
	tok := &ClientToken{ID: "ct-nope", ClientID: "cl-nope", TokenDigest: "digest-nope", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	affected, err := repo.Complete(ctx, session.ID, client, tok)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if affected != 0 {
		t.Errorf("expected 0 affected rows for pending session, got %d", affected)
	}

	// No side effects from the losing attempt.
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM clients`).Scan(&count); err != nil {
		t.Fatalf("counting clients: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no client rows after failed completion, got %d", count)
	}
}

func TestSessionRepositoryDeleteExpiredPending(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	expired := pendingSession("300001", -time.Minute)
	live := pendingSession("300002", 5*time.Minute)
	for _, s := range []*Session{expired, live} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	count, err := repo.DeleteExpiredPending(ctx, time.Now())
	if err != nil {
		t.Fatalf("DeleteExpiredPending failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 deleted session, got %d", count)
	}

	if _, err := repo.GetByID(ctx, live.ID); err != nil {
		t.Errorf("live session should survive sweep: %v", err)
	}
	if _, err := repo.GetByID(ctx, expired.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected expired session gone, got %v", err)
	}
}

func TestClientRepositoryAreas(t *testing.T) {
	db := testDB(t)
	clients := NewClientRepository(db)
	ctx := context.Background()

	seedArea(t, db, "area-1", "lounge")
	seedArea(t, db, "area-2", "study")
	clientID, _ := pairedClient(t, db, "400001", "Lounge Panel", "digest-b", []string{"area-1"})

	areaIDs, err := clients.GetAreaIDs(ctx, clientID)
	if err != nil {
		t.Fatalf("GetAreaIDs failed: %v", err)
	}
	if len(areaIDs) != 1 || areaIDs[0] != "area-1" {
		t.Errorf("expected [area-1], got %v", areaIDs)
	}

	if err := clients.SetAreas(ctx, clientID, []string{"area-2"}); err != nil {
		t.Fatalf("SetAreas failed: %v", err)
	}
	areaIDs, err = clients.GetAreaIDs(ctx, clientID)
	if err != nil {
		t.Fatalf("GetAreaIDs after SetAreas failed: %v", err)
	}
	if len(areaIDs) != 1 || areaIDs[0] != "area-2" {
		t.Errorf("expected [area-2], got %v", areaIDs)
	}

	ids, err := clients.ListActiveByArea(ctx, "area-2")
	if err != nil {
		t.Fatalf("ListActiveByArea failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != clientID {
		t.Errorf("expected [%s], got %v", clientID, ids)
	}

	// Deactivated clients fall out of area-scoped dispatch.
	if err := clients.Deactivate(ctx, clientID); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	ids, err = clients.ListActiveByArea(ctx, "area-2")
	if err != nil {
		t.Fatalf("ListActiveByArea after deactivation failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no active clients, got %v", ids)
	}
}

func TestClientRepositoryDeactivateMissing(t *testing.T) {
	db := testDB(t)
	clients := NewClientRepository(db)

	err := clients.Deactivate(context.Background(), "cl-missing")
	if !errors.Is(err, ErrClientNotFound) {
		t.Errorf("expected ErrClientNotFound, got %v", err)
	}
}

func TestTokenRepositoryRevokeOnce(t *testing.T) {
	db := testDB(t)
	tokens := NewTokenRepository(db)
	ctx := context.Background()

	_, tokenID := pairedClient(t, db, "500001", "Hall Display", "digest-c", nil)

	if err := tokens.Revoke(ctx, tokenID, "admin revoked access"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	got, err := tokens.GetByDigest(ctx, "digest-c")
	if err != nil {
		t.Fatalf("GetByDigest failed: %v", err)
	}
	if !got.IsRevoked {
		t.Error("expected token revoked")
	}
	if got.RevokedReason != "admin revoked access" {
		t.Errorf("unexpected reason %q", got.RevokedReason)
	}

	// A second revocation must not overwrite the original reason.
	if err := tokens.Revoke(ctx, tokenID, "something else"); err != nil {
		t.Fatalf("second Revoke failed: %v", err)
	}
	got, err = tokens.GetByDigest(ctx, "digest-c")
	if err != nil {
		t.Fatalf("GetByDigest after second revoke failed: %v", err)
	}
	if got.RevokedReason != "admin revoked access" {
		t.Errorf("revocation reason overwritten: %q", got.RevokedReason)
	}
}

func TestTokenRepositoryGetByDigestMissing(t *testing.T) {
	db := testDB(t)
	tokens := NewTokenRepository(db)

	_, err := tokens.GetByDigest(context.Background(), "no-such-digest")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestTokenRepositoryRevokeAllForClient(t *testing.T) {
	db := testDB(t)
	tokens := NewTokenRepository(db)
	ctx := context.Background()

	clientID, _ := pairedClient(t, db, "600001", "Spare Tablet", "digest-d", nil)

	count, err := tokens.RevokeAllForClient(ctx, clientID, "client deactivated")
	if err != nil {
		t.Fatalf("RevokeAllForClient failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 revoked token, got %d", count)
	}

	got, err := tokens.GetByDigest(ctx, "digest-d")
	if err != nil {
		t.Fatalf("GetByDigest failed: %v", err)
	}
	if !got.IsRevoked || got.RevokedReason != "client deactivated" {
		t.Errorf("unexpected ledger state: revoked=%v reason=%q", got.IsRevoked, got.RevokedReason)
	}
}
