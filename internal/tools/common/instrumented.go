package common

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/calendar-mcp/internal/faults"
	"github.com/teemow/calendar-mcp/internal/instrumentation"
	"github.com/teemow/calendar-mcp/internal/logging"
	"github.com/teemow/calendar-mcp/internal/server"
)

// ToolHandler is the handler signature the MCP server expects.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// ErrorResult renders an error as the structured JSON error payload
// sent to clients. Domain failures never surface as protocol errors;
// the client always receives exactly one result per call.
func ErrorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(faults.MarshalText(err))
}

// JSONResult marshals a value as the JSON text payload of a result.
func JSONResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrorResult(faults.Wrap(faults.BackendError, "failed to encode result", err))
	}
	return mcp.NewToolResultText(string(data))
}

// InstrumentedToolHandler wraps a tool handler with metrics, duration
// recording and panic containment.
//
// A panicking handler would otherwise kill the whole session; the
// recover turns it into a structured error result so the client still
// gets its one response.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		start := time.Now()
		logger := logging.WithTool(sc.Logger(), toolName)
		// The calendar label only materializes when detailed labels
		// are enabled; see Metrics.RecordToolInvocationForCalendar.
		calendarID, _ := request.GetArguments()["calendar_id"].(string)

		defer func() {
			if r := recover(); r != nil {
				logger.Error("tool handler panicked", "panic", fmt.Sprint(r))
				result = ErrorResult(faults.Newf(faults.BackendError,
					"internal failure while handling %s", toolName))
				err = nil
			}

			status := instrumentation.StatusSuccess
			if err != nil || (result != nil && result.IsError) {
				status = instrumentation.StatusError
			}

			elapsed := time.Since(start)
			if metrics := sc.Metrics(); metrics != nil {
				metrics.RecordToolInvocationForCalendar(ctx, toolName, status, calendarID, elapsed)
			}
			logger.Debug("tool call finished",
				logging.Status(status), logging.KeyDuration, elapsed)
		}()

		return handler(ctx, request)
	}
}
