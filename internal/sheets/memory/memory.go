package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"pokertracker/internal/core"
	"pokertracker/internal/sheets"
)

// Mirror keeps mirrored rows in process, in insertion order.
type Mirror struct {
	mu    sync.Mutex
	order []uuid.UUID
	rows  map[uuid.UUID][]string
}

var _ sheets.SessionMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: make(map[uuid.UUID][]string)}
}

func (m *Mirror) Upsert(_ context.Context, owner uuid.UUID, s core.Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[s.ID]; !ok {
		m.order = append(m.order, s.ID)
	}
	m.rows[s.ID] = sheets.Row(owner, s)
	return nil
}

func (m *Mirror) Delete(_ context.Context, sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[sessionID]; !ok {
		return nil
	}
	delete(m.rows, sessionID)
	for i, id := range m.order {
		if id == sessionID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Row returns a copy of the mirrored row for id.
func (m *Mirror) Row(id uuid.UUID) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	return append([]string(nil), row...), ok
}

// Rows returns every row, header first.
func (m *Mirror) Rows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := [][]string{sheets.Header()}
	for _, id := range m.order {
		out = append(out, append([]string(nil), m.rows[id]...))
	}
	return out
}
