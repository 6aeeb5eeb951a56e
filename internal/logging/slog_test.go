package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestErrWithNilError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("operation done", Err(nil))

	output := buf.String()
	if strings.Contains(output, "error=") {
		t.Errorf("nil error should not produce an error attribute, got: %s", output)
	}
}

func TestErrWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("operation failed", Err(errors.New("backend down")))

	output := buf.String()
	if !strings.Contains(output, "error=") || !strings.Contains(output, "backend down") {
		t.Errorf("expected error attribute in output, got: %s", output)
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	WithTool(WithOperation(logger, "refresh"), "list_events").Info("dispatched")

	output := buf.String()
	if !strings.Contains(output, "operation=refresh") {
		t.Errorf("missing operation attribute: %s", output)
	}
	if !strings.Contains(output, "tool=list_events") {
		t.Errorf("missing tool attribute: %s", output)
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"empty token", "", "<empty>"},
		{"short token", "abc", "[token:3 chars]"},
		{"long token", strings.Repeat("x", 128), "[token:128 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeToken(tt.token)
			if got != tt.want {
				t.Errorf("SanitizeToken() = %q, want %q", got, tt.want)
			}
			if tt.token != "" && strings.Contains(got, tt.token) {
				t.Error("sanitized output must not contain the token")
			}
		})
	}
}

func TestSetupLevels(t *testing.T) {
	logger := Setup(false)
	if logger == nil {
		t.Fatal("Setup returned nil logger")
	}
	if logger != slog.Default() {
		t.Error("Setup should install the returned logger as default")
	}

	debugLogger := Setup(true)
	if !debugLogger.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug logger should enable debug level")
	}
}
