// Package memory is a process-local Store used for development and tests.
// It keeps no sync outbox.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pokertracker/internal/core"
	"pokertracker/internal/storage"
)

type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]core.Session
	users    map[uuid.UUID]core.User
	versions map[uuid.UUID]int64
	now      func() time.Time
}

func New() *Store {
	return &Store{
		sessions: make(map[uuid.UUID]core.Session),
		users:    make(map[uuid.UUID]core.User),
		versions: make(map[uuid.UUID]int64),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ storage.SessionVersioner = (*Store)(nil)

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateSession(_ context.Context, sess core.Session) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[sess.OwnerID]; !ok {
		return core.Session{}, fmt.Errorf("create session: owner %s: %w", sess.OwnerID, storage.ErrNotFound)
	}
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	now := s.now()
	sess.CreatedAt, sess.UpdatedAt = now, now
	sess = clone(sess)
	s.sessions[sess.ID] = sess
	s.versions[sess.OwnerID]++
	return clone(sess), nil
}

func (s *Store) GetSession(_ context.Context, owner, id uuid.UUID) (core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || sess.OwnerID != owner {
		return core.Session{}, fmt.Errorf("get session %s: %w", id, storage.ErrNotFound)
	}
	return clone(sess), nil
}

func (s *Store) ListSessions(_ context.Context, owner uuid.UUID) ([]core.Session, error) {
	s.mu.RLock()
	out := make([]core.Session, 0)
	for _, sess := range s.sessions {
		if sess.OwnerID == owner {
			out = append(out, clone(sess))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[j].Date.IsBefore(out[i].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateSession(_ context.Context, sess core.Session) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[sess.ID]
	if !ok || cur.OwnerID != sess.OwnerID {
		return core.Session{}, fmt.Errorf("update session %s: %w", sess.ID, storage.ErrNotFound)
	}
	sess.CreatedAt = cur.CreatedAt
	sess.UpdatedAt = s.now()
	s.sessions[sess.ID] = clone(sess)
	s.versions[sess.OwnerID]++
	return clone(sess), nil
}

func (s *Store) DeleteSession(_ context.Context, owner, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[id]
	if !ok || cur.OwnerID != owner {
		return fmt.Errorf("delete session %s: %w", id, storage.ErrNotFound)
	}
	delete(s.sessions, id)
	s.versions[owner]++
	return nil
}

func (s *Store) SessionsVersion(_ context.Context, owner uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[owner], nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUnique(u); err != nil {
		return core.User{}, err
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUserByID(_ context.Context, id uuid.UUID) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("get user %s: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("get user by email: %w", storage.ErrNotFound)
}

func (s *Store) UpdateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return core.User{}, fmt.Errorf("update user %s: %w", u.ID, storage.ErrNotFound)
	}
	if err := s.checkUnique(u); err != nil {
		return core.User{}, err
	}
	u.UpdatedAt = s.now()
	s.users[u.ID] = u
	return u, nil
}

// checkUnique must be called with the write lock held.
func (s *Store) checkUnique(u core.User) error {
	for id, other := range s.users {
		if id == u.ID {
			continue
		}
		if other.Email == u.Email || other.Username == u.Username {
			return fmt.Errorf("user %s: %w", u.Email, storage.ErrConflict)
		}
	}
	return nil
}

func clone(sess core.Session) core.Session {
	if sess.Notes != nil {
		n := *sess.Notes
		sess.Notes = &n
	}
	return sess
}

var _ storage.Store = (*Store)(nil)
