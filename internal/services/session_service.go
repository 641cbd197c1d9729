// Package services orchestrates storage, caching and messaging behind the
// HTTP handlers, the CLI and the worker.
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"pokertracker/internal/amqp"
	"pokertracker/internal/auth"
	"pokertracker/internal/core"
	"pokertracker/internal/log"
	"pokertracker/internal/storage"
)

// StatsInvalidator drops cached aggregates for an owner after a write.
type StatsInvalidator interface {
	Invalidate(owner uuid.UUID)
}

// SessionService is owner-scoped session CRUD. Every write invalidates the
// owner's cached stats and nudges the sync worker.
type SessionService struct {
	store     storage.SessionStore
	publisher amqp.Publisher
	stats     StatsInvalidator
	logger    *log.Logger
}

// NewSessionService wires the service. publisher and stats may be nil.
func NewSessionService(store storage.SessionStore, publisher amqp.Publisher, stats StatsInvalidator, logger *log.Logger) *SessionService {
	if logger == nil {
		logger = log.Default()
	}
	return &SessionService{
		store:     store,
		publisher: publisher,
		stats:     stats,
		logger:    logger.WithComponent(log.ComponentSession),
	}
}

// Create validates s and stores it for the caller. ID and owner are assigned
// here; whatever the caller put there is ignored.
func (svc *SessionService) Create(ctx context.Context, id auth.Identity, s core.Session) (core.Session, error) {
	s.ID = uuid.New()
	s.OwnerID = id.UserID
	if err := s.Validate(); err != nil {
		return core.Session{}, err
	}

	created, err := svc.store.CreateSession(ctx, s)
	if err != nil {
		return core.Session{}, fmt.Errorf("create session: %w", err)
	}

	svc.afterWrite(ctx, created.ID, id.UserID, amqp.OperationUpsert)
	svc.logger.InfoContext(ctx, "Session created",
		log.NewFields().WithOperation(log.OpCreate).WithSession(created.ID.String(), id.UserID.String()).ToSlice()...)
	return created, nil
}

func (svc *SessionService) Get(ctx context.Context, id auth.Identity, sessionID uuid.UUID) (core.Session, error) {
	return svc.store.GetSession(ctx, id.UserID, sessionID)
}

// List returns the caller's sessions, newest first.
func (svc *SessionService) List(ctx context.Context, id auth.Identity) ([]core.Session, error) {
	return svc.store.ListSessions(ctx, id.UserID)
}

// Update applies a partial update and validates the merged result.
func (svc *SessionService) Update(ctx context.Context, id auth.Identity, sessionID uuid.UUID, u core.SessionUpdate) (core.Session, error) {
	current, err := svc.store.GetSession(ctx, id.UserID, sessionID)
	if err != nil {
		return core.Session{}, err
	}

	merged := u.Apply(current)
	if err := merged.Validate(); err != nil {
		return core.Session{}, err
	}

	updated, err := svc.store.UpdateSession(ctx, merged)
	if err != nil {
		return core.Session{}, fmt.Errorf("update session: %w", err)
	}

	svc.afterWrite(ctx, sessionID, id.UserID, amqp.OperationUpsert)
	svc.logger.InfoContext(ctx, "Session updated",
		log.NewFields().WithOperation(log.OpUpdate).WithSession(sessionID.String(), id.UserID.String()).ToSlice()...)
	return updated, nil
}

func (svc *SessionService) Delete(ctx context.Context, id auth.Identity, sessionID uuid.UUID) error {
	if err := svc.store.DeleteSession(ctx, id.UserID, sessionID); err != nil {
		return err
	}
	svc.afterWrite(ctx, sessionID, id.UserID, amqp.OperationDelete)
	svc.logger.InfoContext(ctx, "Session deleted",
		log.NewFields().WithOperation(log.OpDelete).WithSession(sessionID.String(), id.UserID.String()).ToSlice()...)
	return nil
}

// afterWrite never fails the request: the write is committed and the outbox
// row guarantees the mirror catches up even if the publish is lost.
func (svc *SessionService) afterWrite(ctx context.Context, sessionID, owner uuid.UUID, op string) {
	if svc.stats != nil {
		svc.stats.Invalidate(owner)
	}
	if svc.publisher == nil {
		return
	}
	if err := svc.publisher.PublishSessionEvent(ctx, amqp.NewSessionEvent(sessionID, owner, op)); err != nil {
		svc.logger.WarnContext(ctx, "Failed to publish session event",
			log.FieldError, err,
			log.FieldSessionID, sessionID,
			log.FieldOperation, op)
	}
}
