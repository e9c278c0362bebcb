package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, slog.LevelInfo, "json").Info("stored", "kind", "invoices")

		var line map[string]any
		if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
			t.Fatalf("Expected JSON output, got %q", buf.String())
		}
		if line["kind"] != "invoices" {
			t.Errorf("Expected kind attribute, got %v", line)
		}
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, slog.LevelWarn, "text").Info("hidden")
		if buf.Len() != 0 {
			t.Errorf("Expected no output below the level, got %q", buf.String())
		}
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, slog.LevelDebug, "text").Debug("visible")
		if !strings.Contains(buf.String(), "visible") {
			t.Errorf("Expected message in output, got %q", buf.String())
		}
	})
}
