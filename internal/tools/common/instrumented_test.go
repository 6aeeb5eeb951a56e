package common

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/calendar-mcp/internal/faults"
	"github.com/teemow/calendar-mcp/internal/instrumentation"
	"github.com/teemow/calendar-mcp/internal/server"
)

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func decodeFault(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	return payload
}

func TestInstrumentedToolHandlerPassesThrough(t *testing.T) {
	sc := server.NewServerContext(t.Context(), nil, nil)

	wrapped := InstrumentedToolHandler("test_tool", sc, func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("done"), nil
	})

	result, err := wrapped(t.Context(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "done", resultText(t, result))
}

func TestInstrumentedToolHandlerRecoversPanic(t *testing.T) {
	sc := server.NewServerContext(t.Context(), nil, nil)

	wrapped := InstrumentedToolHandler("test_tool", sc, func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		panic("handler blew up")
	})

	result, err := wrapped(t.Context(), mcp.CallToolRequest{})
	require.NoError(t, err, "a panic must not surface as a protocol error")
	require.NotNil(t, result)
	assert.True(t, result.IsError)

	payload := decodeFault(t, result)
	assert.Equal(t, "backend_error", payload["kind"])
	assert.Equal(t, false, payload["retryable"])
}

func TestInstrumentedToolHandlerRecordsCalendarLabel(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(t.Context())
	})
	metrics, err := instrumentation.NewMetrics(provider.Meter("test"), true)
	require.NoError(t, err)

	sc := server.NewServerContext(t.Context(), nil, nil)
	sc.SetMetrics(metrics)

	wrapped := InstrumentedToolHandler("list_events", sc, func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("[]"), nil
	})

	var req mcp.CallToolRequest
	req.Params.Arguments = map[string]interface{}{"calendar_id": "team@example.com"}
	_, err = wrapped(t.Context(), req)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(t.Context(), &rm))

	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "mcp_tool_invocations_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				if v, present := dp.Attributes.Value(attribute.Key("calendar_id")); present {
					assert.Equal(t, "team@example.com", v.AsString())
					found = true
				}
			}
		}
	}
	assert.True(t, found, "expected a tool invocation datapoint carrying the calendar label")
}

func TestErrorResultShape(t *testing.T) {
	fault := faults.New(faults.NotFound, "event not found")
	result := ErrorResult(fault)
	assert.True(t, result.IsError)

	payload := decodeFault(t, result)
	assert.Equal(t, "not_found", payload["kind"])
	assert.Equal(t, "event not found", payload["message"])
	assert.Equal(t, false, payload["retryable"])
}

func TestErrorResultPlainError(t *testing.T) {
	result := ErrorResult(errors.New("boom"))
	payload := decodeFault(t, result)
	assert.Equal(t, "backend_error", payload["kind"])
}

func TestJSONResult(t *testing.T) {
	result := JSONResult(map[string]string{"hello": "world"})
	assert.False(t, result.IsError)
	assert.JSONEq(t, `{"hello":"world"}`, resultText(t, result))
}
