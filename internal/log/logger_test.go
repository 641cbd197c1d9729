package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewJSONLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentStats, Output: &buf})
	l.Info("computed", FieldRange, "month")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not JSON: %q", buf.String())
	}
	if rec[FieldComponent] != ComponentStats || rec[FieldRange] != "month" {
		t.Fatalf("record = %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: ParseLevel("warn"), Output: &buf})
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "INFO": slog.LevelInfo, "warning": slog.LevelWarn,
		"error": slog.LevelError, "": slog.LevelInfo, "loud": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext must never return nil")
	}
	l := New(DefaultConfig()).WithComponent(ComponentAuth)
	if got := FromContext(WithContext(context.Background(), l)); got != l {
		t.Fatal("logger not propagated")
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Component() != ComponentApp {
		t.Fatalf("fallback logger = %v", l)
	}
}

func TestHTTPLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	h := NewHTTPLogger(New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf}))
	r := httptest.NewRequest(http.MethodGet, "/api/stats?range=week", nil)
	h.End(context.Background(), r, 503, 12, "10.0.0.1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["level"] != "ERROR" || rec[FieldSuccess] != false || rec[FieldComponent] != ComponentHTTP {
		t.Fatalf("record = %v", rec)
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().WithSession("s1", "o1").WithError(errors.New("boom")).WithError(nil).WithOperation(OpCreate)
	if f[FieldSessionID] != "s1" || f[FieldOwnerID] != "o1" || f[FieldError] != "boom" || f[FieldOperation] != OpCreate {
		t.Fatalf("fields = %v", f)
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Fatal("ToSlice length mismatch")
	}
}
