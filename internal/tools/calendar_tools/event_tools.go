package calendar_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calendar-mcp/internal/calendar"
	"github.com/teemow/calendar-mcp/internal/faults"
	"github.com/teemow/calendar-mcp/internal/server"
	"github.com/teemow/calendar-mcp/internal/tools/common"
)

// RegisterEventTools registers the event tools with the MCP server.
func RegisterEventTools(s *mcpserver.MCPServer, gw Gateway, sc *server.ServerContext) error {
	listEventsTool := mcp.NewTool("list_events",
		mcp.WithDescription("List/search calendar events within a time range"),
		mcp.WithString("calendar_id",
			mcp.Description("Calendar identifier, or 'primary' for the signed-in user (default: 'primary')"),
		),
		mcp.WithString("time_min",
			mcp.Required(),
			mcp.Description("Earliest event start to include (RFC3339, e.g. '2026-01-01T00:00:00Z')"),
		),
		mcp.WithString("time_max",
			mcp.Required(),
			mcp.Description("Latest event start to include (RFC3339)"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of events to return, 1..2500 (default: 10)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional full-text search query applied to the event metadata"),
		),
	)
	s.AddTool(listEventsTool, common.InstrumentedToolHandler("list_events", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, gw)
		}))

	getEventTool := mcp.NewTool("get_event",
		mcp.WithDescription("Get details of a specific calendar event"),
		mcp.WithString("calendar_id",
			mcp.Description("Calendar identifier (default: 'primary')"),
		),
		mcp.WithString("event_id",
			mcp.Required(),
			mcp.Description("Identifier of the event to retrieve"),
		),
	)
	s.AddTool(getEventTool, common.InstrumentedToolHandler("get_event", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetEvent(ctx, request, gw)
		}))

	createEventTool := mcp.NewTool("create_event",
		mcp.WithDescription("Create a new calendar event, optionally with a Google Meet link"),
		mcp.WithString("calendar_id",
			mcp.Description("Calendar identifier (default: 'primary')"),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Human-readable title for the event"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start timestamp (RFC3339, e.g. '2026-01-15T14:00:00Z')"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("End timestamp (RFC3339)"),
		),
		mcp.WithString("description",
			mcp.Description("Optional description"),
		),
		mcp.WithString("location",
			mcp.Description("Physical or virtual location"),
		),
		mcp.WithString("time_zone",
			mcp.Description("Optional IANA timezone identifier (e.g. 'America/New_York') for start and end"),
		),
		mcp.WithString("attendees",
			mcp.Description("Comma-separated list of attendee email addresses"),
		),
		mcp.WithBoolean("conference",
			mcp.Description("Set true to request a Google Meet link when supported"),
		),
	)
	s.AddTool(createEventTool, common.InstrumentedToolHandler("create_event", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateEvent(ctx, request, gw)
		}))

	updateEventTool := mcp.NewTool("update_event",
		mcp.WithDescription("Update fields of an existing calendar event; omitted fields are left untouched"),
		mcp.WithString("calendar_id",
			mcp.Description("Calendar identifier (default: 'primary')"),
		),
		mcp.WithString("event_id",
			mcp.Required(),
			mcp.Description("Identifier of the event to update"),
		),
		mcp.WithString("summary",
			mcp.Description("New event title"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithString("location",
			mcp.Description("New location"),
		),
		mcp.WithString("start",
			mcp.Description("New start timestamp (RFC3339)"),
		),
		mcp.WithString("end",
			mcp.Description("New end timestamp (RFC3339)"),
		),
		mcp.WithString("time_zone",
			mcp.Description("Optional IANA timezone identifier for start and end; only applies together with a new start or end"),
		),
		mcp.WithString("attendees",
			mcp.Description("New comma-separated list of attendee email addresses, replacing the current one; an empty string removes all attendees"),
		),
	)
	s.AddTool(updateEventTool, common.InstrumentedToolHandler("update_event", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleUpdateEvent(ctx, request, gw)
		}))

	deleteEventTool := mcp.NewTool("delete_event",
		mcp.WithDescription("Delete a calendar event; deleting an already deleted event succeeds"),
		mcp.WithString("calendar_id",
			mcp.Description("Calendar identifier (default: 'primary')"),
		),
		mcp.WithString("event_id",
			mcp.Required(),
			mcp.Description("Identifier of the event to delete"),
		),
	)
	s.AddTool(deleteEventTool, common.InstrumentedToolHandler("delete_event", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteEvent(ctx, request, gw)
		}))

	return nil
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, gw Gateway) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	calendarID := calendarIDFromArgs(args)

	timeMin, err := timeArg(args, "time_min", true)
	if err != nil {
		return common.ErrorResult(err), nil
	}
	timeMax, err := timeArg(args, "time_max", true)
	if err != nil {
		return common.ErrorResult(err), nil
	}

	events, err := gw.ListEvents(ctx, calendarID, timeMin, timeMax,
		numberArg(args, "max_results"), stringArg(args, "query"))
	if err != nil {
		return common.ErrorResult(err), nil
	}
	if events == nil {
		events = []calendar.EventSummary{}
	}
	return common.JSONResult(events), nil
}

func handleGetEvent(ctx context.Context, request mcp.CallToolRequest, gw Gateway) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	eventID, err := requiredStringArg(args, "event_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}

	event, err := gw.GetEvent(ctx, calendarIDFromArgs(args), eventID)
	if err != nil {
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(event), nil
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, gw Gateway) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	summary, err := requiredStringArg(args, "summary")
	if err != nil {
		return common.ErrorResult(err), nil
	}
	start, err := timeArg(args, "start", true)
	if err != nil {
		return common.ErrorResult(err), nil
	}
	end, err := timeArg(args, "end", true)
	if err != nil {
		return common.ErrorResult(err), nil
	}

	timeZone := stringArg(args, "time_zone")
	input := calendar.EventInput{
		Summary:     summary,
		Description: stringArg(args, "description"),
		Location:    stringArg(args, "location"),
		Start:       calendar.EventTime{Value: start, TimeZone: timeZone},
		End:         calendar.EventTime{Value: end, TimeZone: timeZone},
		Attendees:   attendeesArg(args),
		Conference:  boolArg(args, "conference"),
	}

	created, err := gw.CreateEvent(ctx, calendarIDFromArgs(args), input)
	if err != nil {
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(created), nil
}

func handleUpdateEvent(ctx context.Context, request mcp.CallToolRequest, gw Gateway) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	eventID, err := requiredStringArg(args, "event_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}

	timeZone := stringArg(args, "time_zone")
	var patch calendar.EventPatch
	if v, ok := args["summary"].(string); ok {
		patch.Summary = &v
	}
	if v, ok := args["description"].(string); ok {
		patch.Description = &v
	}
	if v, ok := args["location"].(string); ok {
		patch.Location = &v
	}
	if start, terr := timeArg(args, "start", false); terr != nil {
		return common.ErrorResult(terr), nil
	} else if !start.IsZero() {
		patch.Start = &calendar.EventTime{Value: start, TimeZone: timeZone}
	}
	if end, terr := timeArg(args, "end", false); terr != nil {
		return common.ErrorResult(terr), nil
	} else if !end.IsZero() {
		patch.End = &calendar.EventTime{Value: end, TimeZone: timeZone}
	}
	if timeZone != "" && patch.Start == nil && patch.End == nil {
		return common.ErrorResult(faults.New(faults.InvalidArgument,
			"time_zone only applies together with a new start or end")), nil
	}
	// An explicitly empty attendees argument clears the attendee list;
	// an absent one leaves it untouched.
	if raw, ok := args["attendees"].(string); ok {
		patch.Attendees = parseAttendees(raw)
	}

	updated, err := gw.UpdateEvent(ctx, calendarIDFromArgs(args), eventID, patch)
	if err != nil {
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(updated), nil
}

func handleDeleteEvent(ctx context.Context, request mcp.CallToolRequest, gw Gateway) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	eventID, err := requiredStringArg(args, "event_id")
	if err != nil {
		return common.ErrorResult(err), nil
	}

	result, err := gw.DeleteEvent(ctx, calendarIDFromArgs(args), eventID)
	if err != nil {
		return common.ErrorResult(err), nil
	}
	return common.JSONResult(result), nil
}
