package instrumentation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderDisabled(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = false

	provider, err := NewProvider(t.Context(), config)
	require.NoError(t, err)
	assert.False(t, provider.Enabled())
	require.NotNil(t, provider.Metrics())

	// No-op recorder must be safe to use.
	provider.Metrics().RecordToolInvocationForCalendar(t.Context(), "list_calendars", StatusSuccess, "", time.Millisecond)
	assert.NoError(t, provider.Shutdown(t.Context()))
}

func TestNewProviderPrometheus(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = true
	config.MetricsExporter = ExporterPrometheus
	config.TracingExporter = ExporterNone

	provider, err := NewProvider(t.Context(), config)
	require.NoError(t, err)
	assert.True(t, provider.Enabled())
	require.NotNil(t, provider.Metrics())

	provider.Metrics().RecordCalendarCall(t.Context(), "list_events", StatusSuccess, 10*time.Millisecond)
	assert.NoError(t, provider.Shutdown(t.Context()))
}

func TestNewProviderInvalidExporter(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = true
	config.MetricsExporter = "statsd"

	_, err := NewProvider(t.Context(), config)
	assert.Error(t, err)
}

func TestTracerAlwaysAvailable(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = false

	provider, err := NewProvider(t.Context(), config)
	require.NoError(t, err)

	tracer := provider.Tracer("test")
	require.NotNil(t, tracer)

	_, span := tracer.Start(t.Context(), "noop")
	span.End()
}
