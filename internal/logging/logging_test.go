package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: slog.LevelInfo, Format: FormatJSON, Output: &buf})
	log.Info("key imported", "handle", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "key imported" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["handle"] != float64(3) {
		t.Errorf("handle = %v", entry["handle"])
	}
}

func TestNewLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: slog.LevelWarn, Format: FormatText, Output: &buf})
	log.Info("below threshold")
	if buf.Len() != 0 {
		t.Errorf("info record passed a warn-level filter: %q", buf.String())
	}
	log.Error("above threshold")
	if buf.Len() == 0 {
		t.Error("error record was filtered out")
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: slog.LevelDebug, Format: FormatText, Output: &buf})
	Component(log, "rng").Debug("source armed")
	if !strings.Contains(buf.String(), "component=rng") {
		t.Errorf("missing component attribute: %q", buf.String())
	}

	// Nil parent logs nowhere but never panics.
	Component(nil, "verify").Info("dropped")
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseLevel("trace"); err == nil {
		t.Error("ParseLevel accepted an unknown level")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("ParseFormat(empty) = %v, %v", f, err)
	}
	if _, err := ParseFormat("logfmt"); err == nil {
		t.Error("ParseFormat accepted an unknown format")
	}
}
