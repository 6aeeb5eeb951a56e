// Package cmd implements the command-line interface for calendar-mcp.
//
// This package provides the following commands:
//   - authorize: Run the interactive Google OAuth consent flow and persist the token
//   - serve: Start the MCP server to provide Google Calendar tools for AI assistants
//
// The serve command is the default command when no subcommand is specified.
package cmd
