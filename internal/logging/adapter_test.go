package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogAdapterNilLogger(t *testing.T) {
	adapter := NewSlogAdapter(nil)
	if adapter.Logger() == nil {
		t.Fatal("expected adapter to fall back to the default logger")
	}
}

func TestSlogAdapterFormats(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	adapter := NewSlogAdapter(logger)

	adapter.Infof("served %d requests", 3)
	adapter.Errorf("lost session %s", "abc")

	output := buf.String()
	for _, want := range []string{"served 3 requests", "lost session abc", "level=INFO", "level=ERROR"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q: %s", want, output)
		}
	}
}
