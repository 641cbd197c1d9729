// Package sheets defines the spreadsheet mirror of poker sessions.
package sheets

import (
	"context"

	"github.com/google/uuid"

	"pokertracker/internal/core"
	"pokertracker/internal/export"
)

// SessionMirror keeps one spreadsheet row per session, keyed by session id.
type SessionMirror interface {
	// Upsert replaces the row for s or appends one if it is missing.
	Upsert(ctx context.Context, owner uuid.UUID, s core.Session) error
	// Delete removes the row for the session. A missing row is not an error.
	Delete(ctx context.Context, sessionID uuid.UUID) error
}

// Header is the mirror column layout: the export columns prefixed by the
// session and owner ids.
func Header() []string {
	return append([]string{"ID", "Owner"}, export.Header...)
}

// Row renders a session in Header order.
func Row(owner uuid.UUID, s core.Session) []string {
	return append([]string{s.ID.String(), owner.String()}, export.Row(s)...)
}
