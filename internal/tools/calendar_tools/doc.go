// Package calendar_tools registers the Google Calendar tools with the
// MCP server. Handlers validate and coerce arguments before touching
// the gateway, and every outcome is returned as a single result: JSON
// payload text on success, a structured fault payload on failure.
package calendar_tools
