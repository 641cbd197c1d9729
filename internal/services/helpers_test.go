package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"pokertracker/internal/amqp"
	"pokertracker/internal/auth"
	"pokertracker/internal/core"
	"pokertracker/internal/log"
	"pokertracker/internal/storage/memory"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.SessionEvent
	err    error
}

func (f *fakePublisher) PublishSessionEvent(_ context.Context, ev *amqp.SessionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) operations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]string, len(f.events))
	for i, ev := range f.events {
		ops[i] = ev.Operation
	}
	return ops
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls map[uuid.UUID]int
}

func (c *countingInvalidator) Invalidate(owner uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[uuid.UUID]int{}
	}
	c.calls[owner]++
}

var errBroker = errors.New("broker down")

func quietLogger() *log.Logger { return log.Discard() }

// newUser stores a user directly and returns its identity.
func newUser(t *testing.T, store *memory.Store, email string) auth.Identity {
	t.Helper()
	u, err := store.CreateUser(context.Background(), core.User{Email: email, Username: email, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return auth.Identity{UserID: u.ID}
}

func sessionOn(date core.Date, minutes int, buyIn, rebuy, cashOut string) core.Session {
	return core.Session{
		Date:            date,
		DurationMinutes: minutes,
		BuyIn:           core.MustMoney(buyIn),
		Rebuy:           core.MustMoney(rebuy),
		CashOut:         core.MustMoney(cashOut),
	}
}
