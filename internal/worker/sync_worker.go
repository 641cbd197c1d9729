// Package worker connects broker deliveries to the outbox sync processor.
package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"pokertracker/internal/amqp"
	"pokertracker/internal/log"
	"pokertracker/internal/storage"
)

// SessionProcessor syncs the pending outbox items of one session.
type SessionProcessor interface {
	ProcessSession(ctx context.Context, sessionID uuid.UUID) error
}

// EventConsumer delivers session events until ctx ends.
type EventConsumer interface {
	ConsumeSessionEvents(ctx context.Context, handler func(context.Context, *amqp.SessionEvent) error) error
}

// SyncWorker reacts to session events by mirroring that session right away
// instead of waiting for the next poll.
type SyncWorker struct {
	processor SessionProcessor
	queue     storage.SyncQueue
	logger    *log.Logger
}

// NewSyncWorker creates a worker. queue is only used for the startup report
// and may be nil.
func NewSyncWorker(processor SessionProcessor, queue storage.SyncQueue, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Default()
	}
	return &SyncWorker{
		processor: processor,
		queue:     queue,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleSessionEvent processes a single event. The event only identifies the
// session; what gets written comes from the outbox.
func (w *SyncWorker) HandleSessionEvent(ctx context.Context, ev *amqp.SessionEvent) error {
	w.logger.InfoContext(ctx, "Processing session event",
		"event_id", ev.ID,
		log.FieldSessionID, ev.SessionID,
		log.FieldOperation, ev.Operation)

	if err := w.processor.ProcessSession(ctx, ev.SessionID); err != nil {
		return fmt.Errorf("process session %s: %w", ev.SessionID, err)
	}
	return nil
}

// Run consumes events until ctx ends.
func (w *SyncWorker) Run(ctx context.Context, consumer EventConsumer) error {
	if w.queue != nil {
		if st, err := w.queue.GetSyncQueueStats(ctx); err == nil {
			w.logger.InfoContext(ctx, "Sync queue status",
				"pending", st.Pending,
				"processing", st.Processing,
				"failed", st.Failed)
		}
	}
	return consumer.ConsumeSessionEvents(ctx, w.HandleSessionEvent)
}
