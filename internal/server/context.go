package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teemow/calendar-mcp/internal/auth"
	"github.com/teemow/calendar-mcp/internal/calendar"
	"github.com/teemow/calendar-mcp/internal/instrumentation"
)

// ServerContext holds the shared dependencies for the MCP server:
// the token manager, the calendar gateway, the metrics recorder and
// the session tracker. Tool handlers reach everything through it.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	tokens   *auth.Manager
	gateway  *calendar.Client
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
	sessions *SessionTracker

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context.
func NewServerContext(ctx context.Context, tokens *auth.Manager, logger *slog.Logger) *ServerContext {
	if logger == nil {
		logger = slog.Default()
	}
	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		tokens: tokens,
		logger: logger,
	}
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// TokenManager returns the credential manager.
func (sc *ServerContext) TokenManager() *auth.Manager {
	return sc.tokens
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Gateway returns the calendar gateway, or nil when none is set yet.
func (sc *ServerContext) Gateway() *calendar.Client {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.gateway
}

// SetGateway sets the calendar gateway.
func (sc *ServerContext) SetGateway(gateway *calendar.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.gateway = gateway
}

// Metrics returns the metrics recorder, or nil when instrumentation
// is not configured.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics sets the metrics recorder.
func (sc *ServerContext) SetMetrics(metrics *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = metrics
	if sc.tokens != nil && metrics != nil {
		sc.tokens.SetMetrics(metrics)
	}
}

// Sessions returns the session tracker, or nil when none is set.
func (sc *ServerContext) Sessions() *SessionTracker {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.sessions
}

// SetSessions sets the session tracker.
func (sc *ServerContext) SetSessions(tracker *SessionTracker) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.sessions = tracker
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context. Safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	if sc.sessions != nil {
		sc.sessions.Stop()
	}
	sc.cancel()
	return nil
}
