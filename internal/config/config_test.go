package config

import (
	"testing"
	"time"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.Host != DefaultHost {
		t.Errorf("Host = %q, want %q", cfg.Host, DefaultHost)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.AuthPort != DefaultAuthPort {
		t.Errorf("AuthPort = %d, want %d", cfg.AuthPort, DefaultAuthPort)
	}
	if cfg.CallTimeout != 30*time.Second {
		t.Errorf("CallTimeout = %v, want 30s", cfg.CallTimeout)
	}
	if cfg.MaxInFlight != 10 {
		t.Errorf("MaxInFlight = %d, want 10", cfg.MaxInFlight)
	}
	if cfg.ClientFile == "" || cfg.TokenFile == "" {
		t.Error("expected non-empty credential file paths")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvHost, "0.0.0.0")
	t.Setenv(EnvPort, "19079")
	t.Setenv(EnvAuthPort, "18080")
	t.Setenv(EnvClientFile, "/etc/calendar-mcp/secret.json")
	t.Setenv(EnvTokenFile, "/var/lib/calendar-mcp/token.json")

	cfg := Default()

	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want 0.0.0.0", cfg.Host)
	}
	if cfg.Port != 19079 {
		t.Errorf("Port = %d, want 19079", cfg.Port)
	}
	if cfg.AuthPort != 18080 {
		t.Errorf("AuthPort = %d, want 18080", cfg.AuthPort)
	}
	if cfg.ClientFile != "/etc/calendar-mcp/secret.json" {
		t.Errorf("ClientFile = %q", cfg.ClientFile)
	}
	if cfg.TokenFile != "/var/lib/calendar-mcp/token.json" {
		t.Errorf("TokenFile = %q", cfg.TokenFile)
	}
}

func TestInvalidPortEnvFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "abc"},
		{"negative", "-1"},
		{"zero", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvPort, tt.value)
			cfg := Default()
			if cfg.Port != DefaultPort {
				t.Errorf("Port = %d, want default %d", cfg.Port, DefaultPort)
			}
		})
	}
}
