package server

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calendar-mcp/internal/instrumentation"
)

func TestNewMetricsServerRequiresProvider(t *testing.T) {
	_, err := NewMetricsServer(MetricsServerConfig{})
	assert.Error(t, err)
}

func TestNewMetricsServerRequiresEnabledProvider(t *testing.T) {
	config := instrumentation.DefaultConfig()
	config.Enabled = false
	provider, err := instrumentation.NewProvider(t.Context(), config)
	require.NoError(t, err)

	_, err = NewMetricsServer(MetricsServerConfig{InstrumentationProvider: provider})
	assert.Error(t, err)
}

func TestMetricsServerDefaultAddr(t *testing.T) {
	provider := newEnabledProvider(t)

	srv, err := NewMetricsServer(MetricsServerConfig{InstrumentationProvider: provider})
	require.NoError(t, err)
	assert.Equal(t, DefaultMetricsAddr, srv.Addr())
}

func TestMetricsServerServesPrometheus(t *testing.T) {
	provider := newEnabledProvider(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv, err := NewMetricsServer(MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
	})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	t.Cleanup(func() {
		_ = srv.Shutdown(t.Context())
	})

	// Wait for the listener to come up.
	var resp *http.Response
	require.Eventually(t, func() bool {
		var getErr error
		resp, getErr = http.Get(fmt.Sprintf("http://%s/metrics", addr))
		return getErr == nil
	}, 5*time.Second, 50*time.Millisecond)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body)

	healthResp, err := http.Get(fmt.Sprintf("http://%s/healthz", addr))
	require.NoError(t, err)
	healthResp.Body.Close()
	assert.Equal(t, http.StatusOK, healthResp.StatusCode)

	require.NoError(t, srv.Shutdown(t.Context()))
	assert.ErrorIs(t, <-errCh, http.ErrServerClosed)
}

func newEnabledProvider(t *testing.T) *instrumentation.Provider {
	t.Helper()
	config := instrumentation.DefaultConfig()
	config.Enabled = true
	config.MetricsExporter = instrumentation.ExporterPrometheus
	config.TracingExporter = instrumentation.ExporterNone

	provider, err := instrumentation.NewProvider(t.Context(), config)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = provider.Shutdown(t.Context())
	})
	return provider
}
