package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func useBuffer(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	prev := logger
	install(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	})
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "debug", "text")
	l.Debug("hello", "pid", 42)

	out := buf.String()
	if !strings.Contains(out, "msg=hello") || !strings.Contains(out, "pid=42") {
		t.Fatalf("expected text output, got %q", out)
	}
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn", "json")
	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %q", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	buf := useBuffer(t)

	WithComponent("supervisor").Info("hello")

	out := decodeLine(t, buf)
	if out["component"] != "supervisor" {
		t.Errorf("Expected component 'supervisor', got %v", out["component"])
	}
	if out["msg"] != "hello" {
		t.Errorf("Expected msg 'hello', got %v", out["msg"])
	}
}

func TestWithProcess(t *testing.T) {
	buf := useBuffer(t)

	WithProcess(4242).Info("process msg")

	out := decodeLine(t, buf)
	if out["pid"] != float64(4242) {
		t.Errorf("Expected pid 4242, got %v", out["pid"])
	}
}

func TestWithTool(t *testing.T) {
	buf := useBuffer(t)

	WithTool("jupyter").Info("tool msg")

	out := decodeLine(t, buf)
	if out["tool_id"] != "jupyter" {
		t.Errorf("Expected tool_id 'jupyter', got %v", out["tool_id"])
	}
}
