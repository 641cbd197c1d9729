package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"pokertracker/internal/amqp"
	"pokertracker/internal/log"
)

type recordingProcessor struct {
	seen []uuid.UUID
	err  error
}

func (r *recordingProcessor) ProcessSession(_ context.Context, id uuid.UUID) error {
	r.seen = append(r.seen, id)
	return r.err
}

// sliceConsumer replays events and then returns.
type sliceConsumer struct {
	events []*amqp.SessionEvent
	errs   []error
}

func (s *sliceConsumer) ConsumeSessionEvents(ctx context.Context, handler func(context.Context, *amqp.SessionEvent) error) error {
	for _, ev := range s.events {
		s.errs = append(s.errs, handler(ctx, ev))
	}
	return nil
}

func TestSyncWorker_HandleSessionEvent(t *testing.T) {
	proc := &recordingProcessor{}
	w := NewSyncWorker(proc, nil, log.Discard())

	ev := amqp.NewSessionEvent(uuid.New(), uuid.New(), amqp.OperationUpsert)
	if err := w.HandleSessionEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleSessionEvent: %v", err)
	}
	if len(proc.seen) != 1 || proc.seen[0] != ev.SessionID {
		t.Fatalf("processor saw %v, want [%s]", proc.seen, ev.SessionID)
	}
}

func TestSyncWorker_HandleSessionEventError(t *testing.T) {
	boom := errors.New("boom")
	w := NewSyncWorker(&recordingProcessor{err: boom}, nil, log.Discard())

	err := w.HandleSessionEvent(context.Background(), amqp.NewSessionEvent(uuid.New(), uuid.New(), amqp.OperationDelete))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
}

func TestSyncWorker_Run(t *testing.T) {
	proc := &recordingProcessor{}
	w := NewSyncWorker(proc, nil, log.Discard())
	consumer := &sliceConsumer{events: []*amqp.SessionEvent{
		amqp.NewSessionEvent(uuid.New(), uuid.New(), amqp.OperationUpsert),
		amqp.NewSessionEvent(uuid.New(), uuid.New(), amqp.OperationDelete),
	}}

	if err := w.Run(context.Background(), consumer); err != nil {
		t.Fatal(err)
	}
	if len(proc.seen) != 2 {
		t.Fatalf("processed %d events, want 2", len(proc.seen))
	}
	for i, err := range consumer.errs {
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
	}
}
