package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calendar-mcp/internal/auth"
	"github.com/teemow/calendar-mcp/internal/config"
	"github.com/teemow/calendar-mcp/internal/instrumentation"
	"github.com/teemow/calendar-mcp/internal/logging"
)

func newAuthorizeCmd() *cobra.Command {
	defaults := config.Default()

	var (
		clientFile  string
		tokenFile   string
		authPort    int
		authTimeout time.Duration
		debugMode   bool
	)

	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Run the Google OAuth consent flow and store the token",
		Long: `Run the interactive Google OAuth authorization-code flow.

A temporary callback server is started on the local auth port, a
consent URL is printed for you to open in a browser, and the resulting
token is written to the token file. The redirect URI
http://127.0.0.1:<auth-port>` + config.DefaultCallbackPath + ` must be registered for the OAuth
client in the Google Cloud console.

Run this once before starting the server. The server refreshes the
access token on its own afterwards; re-run authorize only when the
refresh token itself is revoked or expired.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthorize(clientFile, tokenFile, authPort, authTimeout, debugMode)
		},
	}

	cmd.Flags().StringVar(&clientFile, "client-file", defaults.ClientFile,
		"Path to the OAuth client secret JSON downloaded from Google Cloud")
	cmd.Flags().StringVar(&tokenFile, "token-file", defaults.TokenFile,
		"Path where the OAuth token is stored")
	cmd.Flags().IntVar(&authPort, "auth-port", defaults.AuthPort,
		"Local port for the OAuth redirect callback")
	cmd.Flags().DurationVar(&authTimeout, "timeout", defaults.AuthTimeout,
		"How long to wait for the browser consent callback")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	return cmd
}

func runAuthorize(clientFile, tokenFile string, authPort int, authTimeout time.Duration, debugMode bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.Setup(debugMode)

	// Authorization outcomes are counted like any other credential
	// event; with a push exporter configured they survive this
	// short-lived process.
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if err := instrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation config: %w", err)
	}
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	conf, err := auth.LoadClientConfig(clientFile, config.CalendarScope)
	if err != nil {
		return fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	store := auth.NewStore(tokenFile)
	flow := auth.NewFlow(conf, store, authPort, config.DefaultCallbackPath,
		auth.WithAuthTimeout(authTimeout),
		auth.WithFlowLogger(logger),
	)

	if _, err := flow.Run(ctx); err != nil {
		provider.Metrics().RecordAuthorization(ctx, instrumentation.RefreshResultFailure)
		return fmt.Errorf("authorization failed: %w", err)
	}
	provider.Metrics().RecordAuthorization(ctx, instrumentation.RefreshResultSuccess)

	fmt.Printf("Authorization complete. Token stored at %s\n", store.Path())
	fmt.Println("You can now start the server with: calendar-mcp serve")
	return nil
}
