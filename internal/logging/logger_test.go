package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesToLogFile(t *testing.T) {
	dir := t.TempDir()
	Init(Config{LogDir: dir, Level: "debug", Debug: true})
	defer Shutdown()

	Logger().Info("test message", "key", "value")

	data, err := os.ReadFile(filepath.Join(dir, "dictdeck.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "test message") {
		t.Errorf("log file missing message: %s", data)
	}
}

func TestForComponentBeforeInit(t *testing.T) {
	Shutdown()

	// Created before Init; must still log through the real handler afterward.
	log := ForComponent(CompWindow)

	dir := t.TempDir()
	Init(Config{LogDir: dir, Level: "info", Debug: true})
	defer Shutdown()

	log.Info("deferred handler works")

	data, err := os.ReadFile(filepath.Join(dir, "dictdeck.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var rec map[string]any
	line := strings.TrimSpace(string(data))
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("parse log line %q: %v", line, err)
	}
	if rec["component"] != CompWindow {
		t.Errorf("expected component %q, got %v", CompWindow, rec["component"])
	}
}

func TestAggregatorFlushCounts(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewJSONHandler(&syncWriter{b: &buf}, nil))

	agg := NewAggregator(logger, 30)
	agg.Record(CompWindow, "page_loaded", slog.Int("page", 3))
	agg.Record(CompWindow, "page_loaded", slog.Int("page", 4))
	agg.Record(CompMatch, "highlight_pass")
	agg.flush()

	out := buf.String()
	if !strings.Contains(out, `"count":2`) {
		t.Errorf("expected count 2 for page_loaded, got: %s", out)
	}
	if !strings.Contains(out, "highlight_pass") {
		t.Errorf("expected highlight_pass summary, got: %s", out)
	}
}

// syncWriter makes strings.Builder usable as a handler target.
type syncWriter struct {
	b *strings.Builder
}

func (w *syncWriter) Write(p []byte) (int, error) {
	return w.b.Write(p)
}
