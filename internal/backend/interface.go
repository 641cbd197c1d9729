// Package backend builds the storage, broker and mirror wiring selected by
// configuration.
package backend

import (
	"context"

	"pokertracker/internal/amqp"
	"pokertracker/internal/sheets"
	"pokertracker/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store and the optional collaborators that come
// with it.
type BackendResult struct {
	Store storage.Store
	// Queue is the sync outbox. It is nil for the memory backend.
	Queue storage.SyncQueue
	// Publisher is nil when no broker is configured or reachable.
	Publisher amqp.Publisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateMirror(ctx context.Context, config Config) (sheets.SessionMirror, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Broker, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Spreadsheet mirror, optional
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
	GoogleOAuthTokenFile  string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
