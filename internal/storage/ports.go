// Package storage persists users, sessions and the spreadsheet sync outbox.
//
// Every session query is scoped by owner. The only unscoped read,
// SessionForSync, exists for the sync worker and is not reachable from the
// HTTP layer.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pokertracker/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// SessionStore is owner-scoped CRUD over poker sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, s core.Session) (core.Session, error)
	GetSession(ctx context.Context, owner, id uuid.UUID) (core.Session, error)
	// ListSessions returns newest first (session date, then creation time).
	ListSessions(ctx context.Context, owner uuid.UUID) ([]core.Session, error)
	UpdateSession(ctx context.Context, s core.Session) (core.Session, error)
	DeleteSession(ctx context.Context, owner, id uuid.UUID) error
}

// SessionVersioner is implemented by stores that can report a per-owner
// change counter. Readers use it to tell whether cached aggregates are still
// current, including after writes made by other processes.
type SessionVersioner interface {
	SessionsVersion(ctx context.Context, owner uuid.UUID) (int64, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	UpdateUser(ctx context.Context, u core.User) (core.User, error)
}

// Store is what the API server needs from a backend.
type Store interface {
	SessionStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}

// Sync operations recorded in the outbox.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// Sync item states.
const (
	SyncPending    = "pending"
	SyncProcessing = "processing"
	SyncCompleted  = "completed"
	SyncFailed     = "failed"
)

// SyncItem is one outbox row.
type SyncItem struct {
	ID        int64
	SessionID uuid.UUID
	OwnerID   uuid.UUID
	Operation string
	Status    string
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SyncQueueStats counts outbox rows per state.
type SyncQueueStats struct {
	Pending    int64
	Processing int64
	Completed  int64
	Failed     int64
}

// SyncQueue is the outbox consumed by the sync worker.
type SyncQueue interface {
	DequeueSyncBatch(ctx context.Context, limit int) ([]SyncItem, error)
	PendingSyncForSession(ctx context.Context, sessionID uuid.UUID) ([]SyncItem, error)
	// ClaimSyncItem moves a pending item to processing. It reports false when
	// another consumer got there first.
	ClaimSyncItem(ctx context.Context, id int64) (bool, error)
	MarkSyncComplete(ctx context.Context, id int64) error
	MarkSyncFailed(ctx context.Context, id int64, reason string) error
	IncrementSyncAttempt(ctx context.Context, id int64, reason string) error
	ResetStaleProcessing(ctx context.Context) error
	CleanupCompletedSyncs(ctx context.Context, before time.Time) error
	RetryFailedSyncs(ctx context.Context) error
	GetSyncQueueStats(ctx context.Context) (SyncQueueStats, error)
	SessionForSync(ctx context.Context, id uuid.UUID) (core.Session, error)
}
