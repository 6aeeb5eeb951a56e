package calendar_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calendar-mcp/internal/server"
	"github.com/teemow/calendar-mcp/internal/tools/common"
)

// RegisterCalendarListTools registers the calendar listing tools.
func RegisterCalendarListTools(s *mcpserver.MCPServer, gw Gateway, sc *server.ServerContext) error {
	listCalendarsTool := mcp.NewTool("list_calendars",
		mcp.WithDescription("List all calendars accessible to the signed-in Google account"),
	)

	s.AddTool(listCalendarsTool, common.InstrumentedToolHandler("list_calendars", sc,
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			calendars, err := gw.ListCalendars(ctx)
			if err != nil {
				return common.ErrorResult(err), nil
			}
			return common.JSONResult(calendars), nil
		}))

	return nil
}
