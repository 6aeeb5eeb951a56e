package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/calendar-mcp/internal/instrumentation"
	"github.com/teemow/calendar-mcp/internal/logging"
)

// sessionState models the lifetime of one MCP session.
type sessionState int

const (
	sessionOpen sessionState = iota
	// sessionClosing means the transport disconnected while tool calls
	// were still running; the record is kept until they drain.
	sessionClosing
)

// sessionRecord tracks one session and its in-flight tool calls.
type sessionRecord struct {
	state      sessionState
	inFlight   map[string]struct{}
	lastAccess time.Time
}

// SessionTracker keeps per-session in-flight request bookkeeping. It
// is fed by the MCP server hooks: register/unregister on session
// lifetime, begin/end around every tool call. A periodic sweep drops
// sessions idle beyond the timeout in case a transport vanished
// without unregistering.
type SessionTracker struct {
	sessions      map[string]*sessionRecord
	mu            sync.RWMutex
	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	stopOnce      sync.Once
	idleTimeout   time.Duration
	logger        *slog.Logger
	metrics       *instrumentation.Metrics
}

// DefaultSessionIdleTimeout is how long a silent session survives
// before the sweep reclaims it.
const DefaultSessionIdleTimeout = 24 * time.Hour

// NewSessionTracker creates a session tracker with the default idle timeout.
func NewSessionTracker(logger *slog.Logger, metrics *instrumentation.Metrics) *SessionTracker {
	return NewSessionTrackerWithTimeout(DefaultSessionIdleTimeout, logger, metrics)
}

// NewSessionTrackerWithTimeout creates a session tracker with a custom idle timeout.
func NewSessionTrackerWithTimeout(timeout time.Duration, logger *slog.Logger, metrics *instrumentation.Metrics) *SessionTracker {
	if logger == nil {
		logger = slog.Default()
	}

	t := &SessionTracker{
		sessions:      make(map[string]*sessionRecord),
		cleanupTicker: time.NewTicker(10 * time.Minute),
		cleanupDone:   make(chan struct{}),
		idleTimeout:   timeout,
		logger:        logger,
		metrics:       metrics,
	}

	go t.sweepIdleSessions()

	return t
}

// Register records a newly connected session.
func (t *SessionTracker) Register(ctx context.Context, sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.sessions[sessionID]; ok {
		return
	}
	t.sessions[sessionID] = &sessionRecord{
		state:      sessionOpen,
		inFlight:   make(map[string]struct{}),
		lastAccess: time.Now(),
	}
	if t.metrics != nil {
		t.metrics.IncrementActiveSessions(ctx)
	}
	t.logger.Debug("session registered", logging.Session(sessionID))
}

// Unregister records a disconnected session. If tool calls are still
// in flight the record is kept in closing state until they finish.
func (t *SessionTracker) Unregister(ctx context.Context, sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, ok := t.sessions[sessionID]
	if !ok {
		return
	}
	if len(record.inFlight) > 0 {
		record.state = sessionClosing
		t.logger.Debug("session closing with requests in flight",
			logging.Session(sessionID), "in_flight", len(record.inFlight))
		return
	}
	t.dropLocked(ctx, sessionID)
}

// BeginRequest records a tool call starting on a session. Sessions the
// tracker has never seen (stdio transport has no register hook path in
// every client) are created on first use.
func (t *SessionTracker) BeginRequest(ctx context.Context, sessionID, requestID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, ok := t.sessions[sessionID]
	if !ok {
		record = &sessionRecord{
			state:      sessionOpen,
			inFlight:   make(map[string]struct{}),
			lastAccess: time.Now(),
		}
		t.sessions[sessionID] = record
		if t.metrics != nil {
			t.metrics.IncrementActiveSessions(ctx)
		}
	}
	record.inFlight[requestID] = struct{}{}
	record.lastAccess = time.Now()
}

// EndRequest records a tool call finishing. A closing session with no
// remaining in-flight calls is dropped.
func (t *SessionTracker) EndRequest(ctx context.Context, sessionID, requestID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, ok := t.sessions[sessionID]
	if !ok {
		return
	}
	delete(record.inFlight, requestID)
	record.lastAccess = time.Now()

	if record.state == sessionClosing && len(record.inFlight) == 0 {
		t.dropLocked(ctx, sessionID)
	}
}

// InFlight returns the number of tool calls currently running on a session.
func (t *SessionTracker) InFlight(sessionID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if record, ok := t.sessions[sessionID]; ok {
		return len(record.inFlight)
	}
	return 0
}

// ActiveSessions returns the number of tracked sessions.
func (t *SessionTracker) ActiveSessions() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// dropLocked removes a session record. Caller holds t.mu.
func (t *SessionTracker) dropLocked(ctx context.Context, sessionID string) {
	delete(t.sessions, sessionID)
	if t.metrics != nil {
		t.metrics.DecrementActiveSessions(ctx)
	}
	t.logger.Debug("session removed", logging.Session(sessionID))
}

// sweepIdleSessions periodically reclaims sessions whose transport
// disappeared without an unregister.
func (t *SessionTracker) sweepIdleSessions() {
	for {
		select {
		case <-t.cleanupTicker.C:
			t.mu.Lock()
			now := time.Now()
			expired := 0
			for sessionID, record := range t.sessions {
				if len(record.inFlight) == 0 && now.Sub(record.lastAccess) > t.idleTimeout {
					t.dropLocked(context.Background(), sessionID)
					expired++
				}
			}
			t.mu.Unlock()
			if expired > 0 {
				t.logger.Info("cleaned up idle sessions", "count", expired)
			}
		case <-t.cleanupDone:
			return
		}
	}
}

// Stop stops the sweep goroutine. Safe to call more than once,
// including concurrently.
func (t *SessionTracker) Stop() {
	t.stopOnce.Do(func() {
		t.cleanupTicker.Stop()
		close(t.cleanupDone)
	})
}
