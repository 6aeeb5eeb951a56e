package calendar_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calendar-mcp/internal/calendar"
	"github.com/teemow/calendar-mcp/internal/faults"
	"github.com/teemow/calendar-mcp/internal/server"
)

// Gateway is the calendar backend surface the tool handlers need.
// Implemented by *calendar.Client; stubbed in tests.
type Gateway interface {
	ListCalendars(ctx context.Context) ([]calendar.CalendarInfo, error)
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64, query string) ([]calendar.EventSummary, error)
	GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.EventSummary, error)
	CreateEvent(ctx context.Context, calendarID string, input calendar.EventInput) (*calendar.EventSummary, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, patch calendar.EventPatch) (*calendar.EventSummary, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) (*calendar.DeleteResult, error)
}

// RegisterCalendarTools registers all calendar tools with the MCP server.
func RegisterCalendarTools(s *mcpserver.MCPServer, gw Gateway, sc *server.ServerContext) error {
	if err := RegisterCalendarListTools(s, gw, sc); err != nil {
		return fmt.Errorf("failed to register calendar list tools: %w", err)
	}
	if err := RegisterEventTools(s, gw, sc); err != nil {
		return fmt.Errorf("failed to register event tools: %w", err)
	}
	return nil
}

// calendarIDFromArgs extracts the calendar identifier, defaulting to
// the signed-in user's primary calendar.
func calendarIDFromArgs(args map[string]interface{}) string {
	if v, ok := args["calendar_id"].(string); ok && v != "" {
		return v
	}
	return "primary"
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func requiredStringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", faults.Newf(faults.InvalidArgument, "%s is required", key)
	}
	return v, nil
}

// timeArg parses a timestamp argument. RFC3339 is the documented
// format; naive timestamps without an offset are accepted and read as
// UTC, matching what agents tend to send.
func timeArg(args map[string]interface{}, key string, required bool) (time.Time, error) {
	raw, ok := args[key].(string)
	if !ok || raw == "" {
		if required {
			return time.Time{}, faults.Newf(faults.InvalidArgument, "%s is required", key)
		}
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, faults.Newf(faults.InvalidArgument,
		"%s must be an RFC3339 timestamp, got %q", key, raw)
}

// attendeesArg parses a comma-separated list of attendee emails,
// treating an absent or empty argument as none.
func attendeesArg(args map[string]interface{}) []calendar.Attendee {
	raw, ok := args["attendees"].(string)
	if !ok || raw == "" {
		return nil
	}
	return parseAttendees(raw)
}

// parseAttendees always returns a non-nil slice; an empty input means
// an explicitly empty attendee list.
func parseAttendees(raw string) []calendar.Attendee {
	attendees := []calendar.Attendee{}
	for _, email := range strings.Split(raw, ",") {
		email = strings.TrimSpace(email)
		if email != "" {
			attendees = append(attendees, calendar.Attendee{Email: email})
		}
	}
	return attendees
}

func boolArg(args map[string]interface{}, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func numberArg(args map[string]interface{}, key string) int64 {
	if v, ok := args[key].(float64); ok {
		return int64(v)
	}
	return 0
}
