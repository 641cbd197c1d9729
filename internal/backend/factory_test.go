package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"pokertracker/internal/config"
	"pokertracker/internal/log"
	sheetsmem "pokertracker/internal/sheets/memory"
)

func TestFromAppConfig(t *testing.T) {
	app := config.Defaults()
	app.DataBackend = "memory"
	app.AMQPURL = "amqp://localhost"
	app.GoogleSpreadsheetID = "sheet"
	app.GoogleCredentialsJSON = "{}"

	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != MemoryBackend || cfg.AMQPQueue != "sync_sessions" || cfg.GoogleSheetName != "Sessions" {
		t.Fatalf("unexpected backend config %+v", cfg)
	}

	app.DataBackend = "sheets"
	if _, err := FromAppConfig(app); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "memory", cfg: Config{Type: MemoryBackend}},
		{name: "sqlite", cfg: Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}},
		{name: "sqlite without path", cfg: Config{Type: SQLiteBackend}, wantErr: "SQLite database path"},
		{name: "bad type", cfg: Config{Type: "postgres"}, wantErr: "invalid backend type"},
		{name: "sheets without credentials", cfg: Config{Type: MemoryBackend, GoogleSpreadsheetID: "s"}, wantErr: "GoogleCredentialsFile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatal(err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestFactory_CreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(log.Discard())

	mem, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
	if err != nil {
		t.Fatal(err)
	}
	if mem.Queue != nil || mem.Publisher != nil {
		t.Fatal("memory backend has no outbox and no broker")
	}
	if err := mem.Cleanup(); err != nil {
		t.Fatal(err)
	}

	sqlite, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "db", "poker.db")})
	if err != nil {
		t.Fatal(err)
	}
	if sqlite.Queue == nil {
		t.Fatal("sqlite backend should expose the outbox")
	}
	if err := sqlite.Store.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	if err := sqlite.Cleanup(); err != nil {
		t.Fatal(err)
	}
}

func TestFactory_CreateMirrorDefaultsToMemory(t *testing.T) {
	mirror, err := NewFactory(log.Discard()).CreateMirror(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := mirror.(*sheetsmem.Mirror); !ok {
		t.Fatalf("expected memory mirror, got %T", mirror)
	}
}
