package logger

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// emitLine renders a single record through a fresh handler and returns the
// trimmed output line.
func emitLine(t *testing.T, format logFormat, ctxRID string, component, event string, level slog.Level, attrs ...slog.Attr) string {
	t.Helper()

	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})

	ctx := Background()
	if ctxRID != "" {
		ctx = WithRID(ctx, ctxRID)
	}
	LogEvent(ctx, slog.New(h).With("component", component), level, event, attrs...)

	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line")
	}
	return line
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	line := emitLine(t, formatKV, "rid-123", "app", "test.event", slog.LevelInfo,
		slog.String("status", "ok"),
		slog.String("cause", "unit"),
	)

	tokens := strings.Split(line, " ")
	want := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123"}
	if len(tokens) < len(want) {
		t.Fatalf("too few tokens in %q", line)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %q, want prefix %q (line %q)", i, tokens[i], prefix, line)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	line := emitLine(t, formatJSON, "rid-json", "dialog", "search.failed", slog.LevelError,
		slog.String("status", "fail"),
		slog.String("err", "boom"),
	)

	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected a JSON object, got %q", line)
	}
	ordered := []string{`{"ts":`, `"level":"ERROR"`, `"component":"dialog"`, `"event":"search.failed"`, `"status":"fail"`, `"rid":"rid-json"`}
	pos := -1
	for _, fragment := range ordered {
		idx := strings.Index(line, fragment)
		if idx == -1 || idx < pos {
			t.Fatalf("fragment %q missing or out of order in %q", fragment, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	const raw = "123:456:789"
	line := emitLine(t, formatKV, raw, "app", "rid.test", slog.LevelInfo,
		slog.String("status", "ok"),
	)

	if !strings.Contains(line, "rid="+CompactRID(raw)) {
		t.Fatalf("expected compact rid in %q", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full must stay out of KV output: %q", line)
	}
}

func TestStructuredHandlerCompactRIDJSON(t *testing.T) {
	const raw = "12:34:56"
	line := emitLine(t, formatJSON, raw, "app", "rid.test", slog.LevelInfo,
		slog.String("status", "ok"),
	)

	if !strings.Contains(line, `"rid":"`+CompactRID(raw)+`"`) {
		t.Fatalf("expected compact rid in %q", line)
	}
	if !strings.Contains(line, `"rid_full":"`+raw+`"`) {
		t.Fatalf("expected rid_full alongside the compact rid: %q", line)
	}
	if !strings.Contains(line, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano in JSON output: %q", line)
	}
}

func TestStructuredHandlerDurationBecomesMillis(t *testing.T) {
	line := emitLine(t, formatKV, "", "app", "timing.test", slog.LevelInfo,
		slog.Duration("duration", 1500*time.Millisecond),
	)

	if !strings.Contains(line, "duration_ms=1500") {
		t.Fatalf("expected duration_ms=1500 in %q", line)
	}
	if strings.Contains(line, "duration=") && !strings.Contains(line, "duration_ms=") {
		t.Fatalf("raw duration key leaked into %q", line)
	}
}
