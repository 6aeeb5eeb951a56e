package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calendar-mcp/internal/auth"
	"github.com/teemow/calendar-mcp/internal/calendar"
	"github.com/teemow/calendar-mcp/internal/config"
	"github.com/teemow/calendar-mcp/internal/instrumentation"
	"github.com/teemow/calendar-mcp/internal/logging"
	"github.com/teemow/calendar-mcp/internal/server"
	"github.com/teemow/calendar-mcp/internal/tools/calendar_tools"
)

// supportedTransports are the transport types the serve command accepts.
var supportedTransports = map[string]bool{
	"stdio": true,
	"sse":   true,
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	defaults := config.Default()

	var (
		debugMode  bool
		transport  string
		host       string
		port       int
		clientFile string
		tokenFile  string
		// Metrics server configuration
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide Google
Calendar tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events over HTTP

The server uses the token written by the authorize command and
refreshes it on its own. If no token exists yet, tool calls return an
unauthorized error until authorize has been run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(transport, debugMode, host, port, clientFile, tokenFile,
				MetricsConfig{Enabled: metricsEnabled, Addr: metricsAddr})
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVarP(&transport, "transport", "t", "stdio",
		"Transport type (stdio or sse)")
	cmd.Flags().StringVar(&host, "host", defaults.Host,
		"Host to bind the SSE transport to")
	cmd.Flags().IntVar(&port, "port", defaults.Port,
		"Port to bind the SSE transport to")
	cmd.Flags().StringVar(&clientFile, "client-file", defaults.ClientFile,
		"Path to the OAuth client secret JSON downloaded from Google Cloud")
	cmd.Flags().StringVar(&tokenFile, "token-file", defaults.TokenFile,
		"Path to the stored OAuth token")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", false,
		"Expose Prometheus metrics on a dedicated port (sse transport only)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr,
		"Address for the metrics server")

	return cmd
}

func runServe(transport string, debugMode bool, host string, port int, clientFile, tokenFile string, metricsConfig MetricsConfig) error {
	if !supportedTransports[transport] {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse)", transport)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.Setup(debugMode)

	// Load metrics config from environment if not set via flags
	if !metricsConfig.Enabled && os.Getenv("METRICS_ENABLED") == "true" {
		metricsConfig.Enabled = true
	}
	if addr := os.Getenv("METRICS_ADDR"); addr != "" && metricsConfig.Addr == server.DefaultMetricsAddr {
		metricsConfig.Addr = addr
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if err := instrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation config: %w", err)
	}

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			if transport != "stdio" {
				log.Printf("Error during instrumentation shutdown: %v", err)
			}
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if transport != "stdio" && metricsConfig.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsConfig.Addr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				log.Printf("Metrics server stopped with error: %v", err)
			}
		}()
		log.Printf("Metrics server listening on %s", metricsServer.Addr())
	}

	cfg := config.Default()
	cfg.ClientFile = clientFile
	cfg.TokenFile = tokenFile

	conf, err := auth.LoadClientConfig(cfg.ClientFile, config.CalendarScope)
	if err != nil {
		return fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	store := auth.NewStore(cfg.TokenFile)
	tokens := auth.NewManager(conf, store,
		auth.WithExpiryMargin(cfg.ExpiryMargin),
		auth.WithManagerLogger(logger),
	)

	// Create server context
	serverContext := server.NewServerContext(shutdownCtx, tokens, logger)
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
	}
	serverContext.SetSessions(server.NewSessionTracker(logger, serverContext.Metrics()))

	defer func() {
		// Shutdown metrics server first
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("Error during metrics server shutdown: %v", err)
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			if transport != "stdio" {
				log.Printf("Error during server context shutdown: %v", err)
			}
		}
	}()

	gateway, err := calendar.NewClient(shutdownCtx,
		calendar.WithTokenSource(tokens.TokenSource(shutdownCtx)),
		calendar.WithCallTimeout(cfg.CallTimeout),
		calendar.WithMaxInFlight(cfg.MaxInFlight),
		calendar.WithClientLogger(logger),
		calendar.WithCallMetrics(provider.Metrics()),
	)
	if err != nil {
		return fmt.Errorf("failed to create calendar client: %w", err)
	}
	serverContext.SetGateway(gateway)

	// Create MCP server with session lifecycle hooks
	mcpSrv := mcpserver.NewMCPServer("calendar-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithHooks(sessionHooks(serverContext)),
	)

	// Register all calendar tools
	if err := calendar_tools.RegisterCalendarTools(mcpSrv, gateway, serverContext); err != nil {
		return err
	}

	// Start the appropriate server based on transport type
	switch transport {
	case "stdio":
		return runStdioServer(mcpSrv, logger)
	default:
		return runSSEServer(mcpSrv, serverContext, shutdownCtx, fmt.Sprintf("%s:%d", host, port), metricsConfig)
	}
}

// sessionHooks feeds MCP session and tool-call lifecycle events into
// the session tracker so the server knows which sessions exist and
// which requests are still in flight during shutdown.
func sessionHooks(sc *server.ServerContext) *mcpserver.Hooks {
	hooks := &mcpserver.Hooks{}

	hooks.AddOnRegisterSession(func(ctx context.Context, session mcpserver.ClientSession) {
		sc.Sessions().Register(ctx, session.SessionID())
	})
	hooks.AddOnUnregisterSession(func(ctx context.Context, session mcpserver.ClientSession) {
		sc.Sessions().Unregister(ctx, session.SessionID())
	})
	hooks.AddBeforeCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest) {
		sc.Sessions().BeginRequest(ctx, sessionIDFromContext(ctx), fmt.Sprint(id))
	})
	hooks.AddAfterCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest, result *mcp.CallToolResult) {
		sc.Sessions().EndRequest(ctx, sessionIDFromContext(ctx), fmt.Sprint(id))
	})

	return hooks
}

// sessionIDFromContext resolves the MCP session for a tool call. Calls
// arriving outside a tracked session are attributed to a stdio
// pseudo-session.
func sessionIDFromContext(ctx context.Context) string {
	if session := mcpserver.ClientSessionFromContext(ctx); session != nil {
		return session.SessionID()
	}
	return "stdio"
}

func runStdioServer(mcpSrv *mcpserver.MCPServer, logger *slog.Logger) error {
	errLogger := slog.NewLogLogger(logging.NewSlogAdapter(logger).Logger().Handler(), slog.LevelError)
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv, mcpserver.WithErrorLogger(errLogger)); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runSSEServer(mcpSrv *mcpserver.MCPServer, serverContext *server.ServerContext, ctx context.Context, addr string, metricsConfig MetricsConfig) error {
	sseServer := mcpserver.NewSSEServer(mcpSrv,
		mcpserver.WithSSEEndpoint("/sse"),
		mcpserver.WithMessageEndpoint("/message"),
	)

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer)
	mux.Handle("/message", sseServer)

	// Set up health checker for health check endpoints
	healthChecker := server.NewHealthChecker(serverContext)
	healthChecker.RegisterHealthEndpoints(mux)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     server.HTTPMetricsMiddleware(serverContext.Metrics(), mux),
		ReadTimeout: 0, // SSE streams stay open indefinitely
		IdleTimeout: server.DefaultMetricsIdleTimeout,
	}

	fmt.Printf("SSE server starting on %s\n", addr)
	fmt.Printf("  SSE endpoint: /sse\n")
	fmt.Printf("  Message endpoint: /message\n")
	fmt.Printf("  Health endpoints: /healthz, /readyz\n")
	if metricsConfig.Enabled {
		fmt.Printf("  Metrics endpoint: %s/metrics\n", metricsConfig.Addr)
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()
	healthChecker.SetReady(true)

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping SSE server...")
		healthChecker.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down SSE server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("SSE server stopped with error: %w", err)
		}
	}

	fmt.Println("SSE server gracefully stopped")
	return nil
}
