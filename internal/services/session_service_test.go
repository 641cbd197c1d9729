package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"pokertracker/internal/amqp"
	"pokertracker/internal/core"
	"pokertracker/internal/storage"
	"pokertracker/internal/storage/memory"
)

func TestSessionService_CreateAssignsOwner(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	alice := newUser(t, store, "alice@example.com")
	pub := &fakePublisher{}
	inv := &countingInvalidator{}
	svc := NewSessionService(store, pub, inv, quietLogger())

	in := sessionOn(core.NewDate(2024, 3, 10), 120, "100", "50", "300")
	in.ID = uuid.New()
	in.OwnerID = uuid.New()

	created, err := svc.Create(ctx, alice, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.OwnerID != alice.UserID {
		t.Fatalf("owner = %s, want caller %s", created.OwnerID, alice.UserID)
	}
	if created.ID == in.ID {
		t.Fatal("caller supplied id must be replaced")
	}
	if !created.Profit().Equal(core.MustMoney("150")) {
		t.Fatalf("profit = %s, want 150.00", created.Profit())
	}
	if ops := pub.operations(); len(ops) != 1 || ops[0] != amqp.OperationUpsert {
		t.Fatalf("published %v, want [upsert]", ops)
	}
	if inv.calls[alice.UserID] != 1 {
		t.Fatalf("stats invalidated %d times, want 1", inv.calls[alice.UserID])
	}
}

func TestSessionService_CreateValidation(t *testing.T) {
	store := memory.New()
	alice := newUser(t, store, "alice@example.com")
	pub := &fakePublisher{}
	svc := NewSessionService(store, pub, nil, quietLogger())

	tests := []struct {
		name    string
		session core.Session
		want    error
	}{
		{"zero duration", sessionOn(core.NewDate(2024, 3, 10), 0, "100", "0", "0"), core.ErrInvalidDuration},
		{"negative buy-in", sessionOn(core.NewDate(2024, 3, 10), 60, "-1", "0", "0"), core.ErrNegativeAmount},
		{"missing date", sessionOn(core.Date{}, 60, "1", "0", "0"), core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), alice, tt.session)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if len(pub.operations()) != 0 {
		t.Fatal("rejected sessions must not publish")
	}
}

func TestSessionService_OwnerScoping(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	alice := newUser(t, store, "alice@example.com")
	bob := newUser(t, store, "bob@example.com")
	svc := NewSessionService(store, nil, nil, quietLogger())

	s, err := svc.Create(ctx, alice, sessionOn(core.NewDate(2024, 3, 10), 60, "100", "0", "120"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(ctx, bob, s.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("bob Get err = %v, want ErrNotFound", err)
	}
	cash := core.MustMoney("0")
	if _, err := svc.Update(ctx, bob, s.ID, core.SessionUpdate{CashOut: &cash}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("bob Update err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, bob, s.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("bob Delete err = %v, want ErrNotFound", err)
	}
	list, err := svc.List(ctx, bob)
	if err != nil || len(list) != 0 {
		t.Fatalf("bob list = %v, %v", list, err)
	}
}

func TestSessionService_PartialUpdate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	alice := newUser(t, store, "alice@example.com")
	pub := &fakePublisher{}
	svc := NewSessionService(store, pub, nil, quietLogger())

	notes := "deep run"
	in := sessionOn(core.NewDate(2024, 3, 10), 60, "100", "0", "120")
	in.Notes = &notes
	s, err := svc.Create(ctx, alice, in)
	if err != nil {
		t.Fatal(err)
	}

	rebuy := core.MustMoney("40")
	updated, err := svc.Update(ctx, alice, s.ID, core.SessionUpdate{Rebuy: &rebuy})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.Profit().Equal(core.MustMoney("-20")) {
		t.Fatalf("profit = %s, want -20.00", updated.Profit())
	}
	if updated.NotesText() != notes || updated.DurationMinutes != 60 {
		t.Fatalf("untouched fields changed: %+v", updated)
	}

	updated, err = svc.Update(ctx, alice, s.ID, core.SessionUpdate{ClearNotes: true})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Notes != nil {
		t.Fatal("notes should be cleared")
	}

	bad := 0
	if _, err := svc.Update(ctx, alice, s.ID, core.SessionUpdate{DurationMinutes: &bad}); !errors.Is(err, core.ErrInvalidDuration) {
		t.Fatalf("err = %v, want ErrInvalidDuration", err)
	}

	if err := svc.Delete(ctx, alice, s.ID); err != nil {
		t.Fatal(err)
	}
	want := []string{amqp.OperationUpsert, amqp.OperationUpsert, amqp.OperationUpsert, amqp.OperationDelete}
	got := pub.operations()
	if len(got) != len(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("published %v, want %v", got, want)
		}
	}
}

func TestSessionService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	alice := newUser(t, store, "alice@example.com")
	svc := NewSessionService(store, &fakePublisher{err: errBroker}, nil, quietLogger())

	s, err := svc.Create(ctx, alice, sessionOn(core.NewDate(2024, 3, 10), 60, "100", "0", "120"))
	if err != nil {
		t.Fatalf("Create should succeed when the broker is down: %v", err)
	}
	if _, err := svc.Get(ctx, alice, s.ID); err != nil {
		t.Fatalf("session should be stored: %v", err)
	}
}
