package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calendar-mcp/internal/config"
	"github.com/teemow/calendar-mcp/internal/server"
)

func TestServeRejectsUnknownTransport(t *testing.T) {
	err := runServe("websocket", false, "127.0.0.1", 9079, "client.json", "token.json",
		MetricsConfig{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transport type: websocket")
	assert.Contains(t, err.Error(), "stdio, sse")
}

func TestServeFlagDefaults(t *testing.T) {
	cmd := newServeCmd()

	tests := []struct {
		flag string
		want string
	}{
		{"transport", "stdio"},
		{"host", config.DefaultHost},
		{"port", "9079"},
		{"metrics-enabled", "false"},
		{"metrics-addr", server.DefaultMetricsAddr},
		{"debug", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			f := cmd.Flags().Lookup(tt.flag)
			require.NotNil(t, f, "flag %s not registered", tt.flag)
			assert.Equal(t, tt.want, f.DefValue)
		})
	}
}

func TestServeFlagDefaultsFollowEnvironment(t *testing.T) {
	t.Setenv(config.EnvHost, "0.0.0.0")
	t.Setenv(config.EnvPort, "7000")
	t.Setenv(config.EnvTokenFile, "/tmp/token.json")

	cmd := newServeCmd()

	assert.Equal(t, "0.0.0.0", cmd.Flags().Lookup("host").DefValue)
	assert.Equal(t, "7000", cmd.Flags().Lookup("port").DefValue)
	assert.Equal(t, "/tmp/token.json", cmd.Flags().Lookup("token-file").DefValue)
}

func TestAuthorizeFlagDefaults(t *testing.T) {
	cmd := newAuthorizeCmd()

	assert.Equal(t, "8080", cmd.Flags().Lookup("auth-port").DefValue)
	assert.Equal(t, "5m0s", cmd.Flags().Lookup("timeout").DefValue)
	require.NotNil(t, cmd.Flags().Lookup("client-file"))
	require.NotNil(t, cmd.Flags().Lookup("token-file"))
}

func TestSessionIDFromContextFallsBackToStdio(t *testing.T) {
	assert.Equal(t, "stdio", sessionIDFromContext(context.Background()))
}
