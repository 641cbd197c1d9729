package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"pokertracker/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "poker.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{Email: email, Username: email, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func sampleSession(owner uuid.UUID, date core.Date) core.Session {
	notes := "button was loose, \"loose\""
	return core.Session{
		OwnerID:         owner,
		Date:            date,
		DurationMinutes: 150,
		BuyIn:           core.MustMoney("100.10"),
		Rebuy:           core.MustMoney("0"),
		CashOut:         core.MustMoney("150.20"),
		Notes:           &notes,
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poker.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
	v, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatal(err)
	}
	if v != 4 || dirty {
		t.Fatalf("version = %d dirty = %v", v, dirty)
	}
}

func TestSessionCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := newTestUser(t, repo, "alice@example.com")
	bob := newTestUser(t, repo, "bob@example.com")

	created, err := repo.CreateSession(ctx, sampleSession(alice.ID, core.NewDate(2024, 3, 1)))
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if created.ID == uuid.Nil || created.CreatedAt.IsZero() {
		t.Fatalf("id and timestamps not assigned: %+v", created)
	}

	got, err := repo.GetSession(ctx, alice.ID, created.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Profit().String() != "50.10" || got.NotesText() != *created.Notes || got.Date != created.Date {
		t.Fatalf("round trip lost data: %+v", got)
	}

	if _, err := repo.GetSession(ctx, bob.ID, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other owner should not see the session, got %v", err)
	}

	got.DurationMinutes = 60
	got.Notes = nil
	updated, err := repo.UpdateSession(ctx, got)
	if err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if updated.DurationMinutes != 60 || updated.Notes != nil {
		t.Fatalf("update not persisted: %+v", updated)
	}

	foreign := updated
	foreign.OwnerID = bob.ID
	if _, err := repo.UpdateSession(ctx, foreign); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update across owners should fail, got %v", err)
	}
	if err := repo.DeleteSession(ctx, bob.ID, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete across owners should fail, got %v", err)
	}

	if err := repo.DeleteSession(ctx, alice.ID, created.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := repo.GetSession(ctx, alice.ID, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListSessionsOrderAndScope(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := newTestUser(t, repo, "alice@example.com")
	bob := newTestUser(t, repo, "bob@example.com")

	dates := []core.Date{core.NewDate(2024, 1, 5), core.NewDate(2024, 3, 1), core.NewDate(2024, 2, 10)}
	for _, d := range dates {
		if _, err := repo.CreateSession(ctx, sampleSession(alice.ID, d)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := repo.CreateSession(ctx, sampleSession(bob.ID, core.NewDate(2024, 4, 1))); err != nil {
		t.Fatal(err)
	}

	list, err := repo.ListSessions(ctx, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d sessions, want 3", len(list))
	}
	want := []string{"2024-03-01", "2024-02-10", "2024-01-05"}
	for i, s := range list {
		if s.Date.String() != want[i] {
			t.Fatalf("position %d = %s, want %s", i, s.Date, want[i])
		}
	}

	empty, err := repo.ListSessions(ctx, uuid.New())
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %v %v", empty, err)
	}
}

func TestCreateSessionRequiresOwner(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.CreateSession(context.Background(), sampleSession(uuid.New(), core.NewDate(2024, 1, 1))); err == nil {
		t.Fatal("expected foreign key failure for unknown owner")
	}
}

func TestUserUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "alice@example.com")

	_, err := repo.CreateUser(ctx, core.User{Email: "alice@example.com", Username: "other", PasswordHash: "x"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	byEmail, err := repo.GetUserByEmail(ctx, "alice@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("GetUserByEmail = %+v, %v", byEmail, err)
	}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	u.CookieConsent = true
	u.CookieConsentDate = &now
	if _, err := repo.UpdateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.CookieConsent || got.CookieConsentDate == nil || !got.CookieConsentDate.Equal(now) {
		t.Fatalf("cookie consent not persisted: %+v", got)
	}

	if _, err := repo.GetUserByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSyncOutbox(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := newTestUser(t, repo, "alice@example.com")

	s, err := repo.CreateSession(ctx, sampleSession(alice.ID, core.NewDate(2024, 3, 1)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.UpdateSession(ctx, s); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteSession(ctx, alice.ID, s.ID); err != nil {
		t.Fatal(err)
	}

	items, err := repo.DequeueSyncBatch(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	ops := make([]string, len(items))
	for i, it := range items {
		ops[i] = it.Operation
		if it.SessionID != s.ID || it.OwnerID != alice.ID {
			t.Fatalf("item %d points at the wrong session: %+v", i, it)
		}
	}
	if len(ops) != 3 || ops[0] != OpUpsert || ops[1] != OpUpsert || ops[2] != OpDelete {
		t.Fatalf("ops = %v", ops)
	}

	claimed, err := repo.ClaimSyncItem(ctx, items[0].ID)
	if err != nil || !claimed {
		t.Fatalf("first claim = %v, %v", claimed, err)
	}
	claimed, err = repo.ClaimSyncItem(ctx, items[0].ID)
	if err != nil || claimed {
		t.Fatalf("second claim should lose, got %v, %v", claimed, err)
	}
	if err := repo.MarkSyncComplete(ctx, items[0].ID); err != nil {
		t.Fatal(err)
	}

	if _, err := repo.ClaimSyncItem(ctx, items[1].ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.IncrementSyncAttempt(ctx, items[1].ID, "sheets down"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ClaimSyncItem(ctx, items[2].ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.MarkSyncFailed(ctx, items[2].ID, "gave up"); err != nil {
		t.Fatal(err)
	}

	st, err := repo.GetSyncQueueStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st != (SyncQueueStats{Pending: 1, Completed: 1, Failed: 1}) {
		t.Fatalf("stats = %+v", st)
	}

	pending, err := repo.PendingSyncForSession(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Attempts != 1 || pending[0].LastError != "sheets down" {
		t.Fatalf("pending = %+v", pending)
	}

	if err := repo.RetryFailedSyncs(ctx); err != nil {
		t.Fatal(err)
	}
	if err := repo.CleanupCompletedSyncs(ctx, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	st, _ = repo.GetSyncQueueStats(ctx)
	if st != (SyncQueueStats{Pending: 2}) {
		t.Fatalf("stats after retry and cleanup = %+v", st)
	}
}

func TestResetStaleProcessing(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := newTestUser(t, repo, "alice@example.com")
	if _, err := repo.CreateSession(ctx, sampleSession(alice.ID, core.NewDate(2024, 3, 1))); err != nil {
		t.Fatal(err)
	}
	items, _ := repo.DequeueSyncBatch(ctx, 1)
	if _, err := repo.ClaimSyncItem(ctx, items[0].ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.ResetStaleProcessing(ctx); err != nil {
		t.Fatal(err)
	}
	again, _ := repo.DequeueSyncBatch(ctx, 1)
	if len(again) != 1 || again[0].Status != SyncPending {
		t.Fatalf("stale item not reset: %+v", again)
	}
}

func TestSessionForSyncIsUnscoped(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := newTestUser(t, repo, "alice@example.com")
	s, err := repo.CreateSession(ctx, sampleSession(alice.ID, core.NewDate(2024, 3, 1)))
	if err != nil {
		t.Fatal(err)
	}
	got, err := repo.SessionForSync(ctx, s.ID)
	if err != nil || got.OwnerID != alice.ID {
		t.Fatalf("SessionForSync = %+v, %v", got, err)
	}
	if _, err := repo.SessionForSync(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionsVersionTracksWrites(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := newTestUser(t, repo, "alice@example.com")
	bob := newTestUser(t, repo, "bob@example.com")

	version := func(owner uuid.UUID) int64 {
		t.Helper()
		v, err := repo.SessionsVersion(ctx, owner)
		if err != nil {
			t.Fatalf("SessionsVersion: %v", err)
		}
		return v
	}

	if v := version(alice.ID); v != 0 {
		t.Fatalf("version before any write = %d, want 0", v)
	}
	created, err := repo.CreateSession(ctx, sampleSession(alice.ID, core.NewDate(2024, 3, 1)))
	if err != nil {
		t.Fatal(err)
	}
	if v := version(alice.ID); v != 1 {
		t.Fatalf("version after create = %d, want 1", v)
	}

	created.DurationMinutes = 30
	if _, err := repo.UpdateSession(ctx, created); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteSession(ctx, bob.ID, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete across owners should fail, got %v", err)
	}
	if v := version(alice.ID); v != 2 {
		t.Fatalf("version after update and a rejected delete = %d, want 2", v)
	}
	if err := repo.DeleteSession(ctx, alice.ID, created.ID); err != nil {
		t.Fatal(err)
	}
	if v := version(alice.ID); v != 3 {
		t.Fatalf("version after delete = %d, want 3", v)
	}
	if v := version(bob.ID); v != 0 {
		t.Fatalf("other owner's version moved to %d", v)
	}
}

func TestNegativeAmountsAreRejectedBySchema(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := newTestUser(t, repo, "alice@example.com")
	created, err := repo.CreateSession(ctx, sampleSession(alice.ID, core.NewDate(2024, 3, 1)))
	if err != nil {
		t.Fatal(err)
	}

	for _, column := range []string{"buy_in_amount", "rebuy_amount", "cash_out_amount"} {
		t.Run(column, func(t *testing.T) {
			_, err := repo.db.ExecContext(ctx, `UPDATE poker_sessions SET `+column+` = '-0.01' WHERE id = ?`, created.ID.String())
			if err == nil {
				t.Fatalf("negative %s was accepted", column)
			}
			if _, err := repo.db.ExecContext(ctx, `UPDATE poker_sessions SET `+column+` = '0' WHERE id = ?`, created.ID.String()); err != nil {
				t.Fatalf("zero %s rejected: %v", column, err)
			}
		})
	}
}
