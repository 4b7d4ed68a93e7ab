package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"":        slog.LevelInfo,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for input, want := range tests {
		got, err := ParseLevel(input)
		if err != nil {
			t.Fatalf("ParseLevel(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn, "json")
	logger.Info("dropped")
	logger.Warn("kept", "meeting_id", "m-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %q", buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if record["msg"] != "kept" || record["meeting_id"] != "m-1" {
		t.Fatalf("unexpected record %v", record)
	}

	buf.Reset()
	New(&buf, slog.LevelInfo, "text").Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("expected text output, got %q", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	logger := New(&bytes.Buffer{}, slog.LevelInfo, "text")
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatalf("expected logger from context")
	}
	if FromContext(context.Background()) != nil {
		t.Fatalf("expected nil logger for bare context")
	}
}

func TestOrDefault(t *testing.T) {
	custom := New(&bytes.Buffer{}, slog.LevelInfo, "text")
	if OrDefault(custom) != custom {
		t.Fatalf("expected custom logger to be returned")
	}
	if OrDefault(nil) != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestScoped(t *testing.T) {
	var fallback, scoped bytes.Buffer

	Scoped(context.Background(), New(&fallback, slog.LevelInfo, "text"), "handler", "UserHandler", "", "user_id", "u-1").Info("listed")
	out := fallback.String()
	for _, want := range []string{"handler=UserHandler", "user_id=u-1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "operation=") {
		t.Fatalf("expected no operation attribute, got %q", out)
	}

	ctx := ContextWithLogger(context.Background(), New(&scoped, slog.LevelInfo, "text"))
	Scoped(ctx, New(&fallback, slog.LevelInfo, "text"), "service", "LedgerService", "Edit").Info("edited")
	if !strings.Contains(scoped.String(), "service=LedgerService operation=Edit") {
		t.Fatalf("expected context logger to receive scoped attributes, got %q", scoped.String())
	}
}
