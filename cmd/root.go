package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the calendar-mcp application
var rootCmd = &cobra.Command{
	Use:   "calendar-mcp",
	Short: "MCP server exposing Google Calendar tools for AI assistants",
	Long: `calendar-mcp is a Model Context Protocol (MCP) server that gives AI
assistants access to a single Google Calendar account.

It provides two commands:
  - authorize: Run the one-time Google OAuth consent flow in a browser
  - serve: Start the MCP server (default when no subcommand is given)

Run authorize once to obtain a refresh token, then serve uses and
refreshes it on its own.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "calendar-mcp version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newAuthorizeCmd())
	rootCmd.AddCommand(newServeCmd())
}
