package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentLedger, Output: &buf})

	logger.WithComponent(ComponentSync).Info("saved", FieldVersion, 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentSync {
		t.Fatalf("expected component %q, got %v", ComponentSync, rec[FieldComponent])
	}
	if rec[FieldVersion] != float64(3) {
		t.Fatalf("expected version 3, got %v", rec[FieldVersion])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}
}

func TestLogErrorAndHTTPEnd(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf})

	logger.LogError(context.Background(), "save failed", errors.New("boom"), ErrorTypeSync, OpSave, NewFields().WithUser("u1"))
	req := httptest.NewRequest("GET", "/api/ledger?view=all", nil)
	logger.LogHTTPEnd(context.Background(), req, 503, 12, "10.0.0.1")

	out := buf.String()
	for _, want := range []string{"error=boom", "error_type=sync_error", "operation=save", "user_id=u1", "status_code=503", "level=ERROR"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %s", want, out)
		}
	}
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("expected fallback logger")
	}
	l := Discard()
	if FromContext(IntoContext(context.Background(), l)) != l {
		t.Fatalf("expected stored logger")
	}
}
