package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session event operations. They match the outbox operations in storage.
const (
	OperationUpsert = "upsert"
	OperationDelete = "delete"
)

// SessionEvent tells the worker that a session changed. It carries ids only;
// the worker reads the current row from the outbox and the session store.
type SessionEvent struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSessionEvent(sessionID, ownerID uuid.UUID, operation string) *SessionEvent {
	return &SessionEvent{
		ID:        uuid.New(),
		SessionID: sessionID,
		OwnerID:   ownerID,
		Operation: operation,
		Timestamp: time.Now().UTC(),
	}
}

func (e *SessionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// SessionEventFromJSON decodes and checks an event body.
func SessionEventFromJSON(data []byte) (*SessionEvent, error) {
	var ev SessionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.SessionID == uuid.Nil {
		return nil, fmt.Errorf("session event without session_id")
	}
	switch ev.Operation {
	case OperationUpsert, OperationDelete:
	default:
		return nil, fmt.Errorf("unknown session event operation %q", ev.Operation)
	}
	return &ev, nil
}
