package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/calendar-mcp/internal/faults"
	"github.com/teemow/calendar-mcp/internal/logging"
)

// DefaultExpiryMargin is how close to expiry an access token may be
// before it is treated as already expired.
const DefaultExpiryMargin = 60 * time.Second

// RefreshMetrics records token refresh outcomes. Satisfied by
// *instrumentation.Metrics; nil disables recording.
type RefreshMetrics interface {
	RecordTokenRefresh(ctx context.Context, result string)
}

// Manager guarantees callers a valid, non-expired access token,
// refreshing silently through the refresh token when needed. The
// check-expiry/refresh/persist sequence runs under a single mutex, so
// concurrent callers observing an expired token collapse into one
// refresh attempt and all waiters receive its outcome.
type Manager struct {
	conf    *oauth2.Config
	store   *Store
	margin  time.Duration
	logger  *slog.Logger
	metrics RefreshMetrics

	mu     sync.Mutex
	record *TokenRecord
	loaded bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithExpiryMargin overrides the expiry safety margin.
func WithExpiryMargin(margin time.Duration) ManagerOption {
	return func(m *Manager) { m.margin = margin }
}

// WithManagerLogger sets the logger used by the manager.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a token manager over the given client config and
// store.
func NewManager(conf *oauth2.Config, store *Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		conf:   conf,
		store:  store,
		margin: DefaultExpiryMargin,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetMetrics attaches a refresh-outcome recorder. Safe to call before
// serving starts; not synchronized against concurrent AccessToken use.
func (m *Manager) SetMetrics(metrics RefreshMetrics) {
	m.metrics = metrics
}

// AccessToken returns a valid access token, refreshing it first when
// the stored one is expired or within the safety margin. It fails with
// an Unauthorized fault when no credential is stored or the refresh
// token has been revoked; in the latter case the stale record is kept
// on disk for diagnostics but never served as valid.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	record, err := m.validRecord(ctx)
	if err != nil {
		return "", err
	}
	return record.AccessToken, nil
}

// validRecord returns a copy of the current record, guaranteed outside
// the expiry margin.
func (m *Manager) validRecord(ctx context.Context) (TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		record, err := m.store.Load()
		if err != nil {
			return TokenRecord{}, err
		}
		m.record = record
		m.loaded = true
	}

	if m.record == nil {
		return TokenRecord{}, faults.New(faults.Unauthorized,
			"no stored credential; run the authorize command first")
	}

	if !m.record.ExpiredWithin(m.margin) {
		return *m.record, nil
	}

	refreshed, err := m.refreshLocked(ctx)
	if err != nil {
		return TokenRecord{}, err
	}
	return *refreshed, nil
}

// refreshLocked performs one refresh attempt against the token
// endpoint. Caller holds m.mu.
func (m *Manager) refreshLocked(ctx context.Context) (*TokenRecord, error) {
	if m.record.RefreshToken == "" {
		return nil, faults.New(faults.Unauthorized,
			"stored credential has no refresh token; run the authorize command again")
	}

	start := time.Now()
	ts := m.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: m.record.RefreshToken})
	tok, err := ts.Token()
	if err != nil {
		ferr := m.classifyRefreshError(err)
		m.recordRefresh(ctx, "failure")
		m.logger.Warn("token refresh failed",
			logging.Operation("token_refresh"),
			"kind", string(faults.KindOf(ferr)),
			logging.Err(err))
		return nil, ferr
	}

	record := newRecordFromToken(tok, m.record.RefreshToken, m.record.Scopes)
	if err := m.store.Save(record); err != nil {
		// Credential state is left unchanged: the old cached record
		// stays authoritative and the caller sees the storage failure.
		m.recordRefresh(ctx, "failure")
		return nil, err
	}

	m.record = record
	m.recordRefresh(ctx, "success")
	m.logger.Info("token refreshed",
		logging.Operation("token_refresh"),
		"access_token", logging.SanitizeToken(record.AccessToken),
		"expiry", record.Expiry,
		logging.KeyDuration, time.Since(start))
	return record, nil
}

// classifyRefreshError separates an explicit token endpoint rejection
// (revoked or invalid refresh token, reauthorization required) from a
// transient network or backend failure (caller may retry).
func (m *Manager) classifyRefreshError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.ErrorCode == "invalid_grant" {
			return faults.Wrap(faults.Unauthorized,
				"refresh token rejected by the token endpoint; run the authorize command again", err)
		}
		if rerr.Response != nil {
			code := rerr.Response.StatusCode
			if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
				return faults.Wrap(faults.Unauthorized,
					"token endpoint rejected the refresh request; run the authorize command again", err)
			}
		}
		return faults.Wrap(faults.TokenRefreshTransient,
			"token endpoint temporarily unavailable", err)
	}
	return faults.Wrap(faults.TokenRefreshTransient, "token refresh failed", err)
}

func (m *Manager) recordRefresh(ctx context.Context, result string) {
	if m.metrics != nil {
		m.metrics.RecordTokenRefresh(ctx, result)
	}
}

// TokenSource adapts the manager to oauth2.TokenSource so the calendar
// gateway's HTTP client always carries a live token. The returned
// source is safe for concurrent use.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerTokenSource{manager: m, ctx: ctx}
}

type managerTokenSource struct {
	manager *Manager
	ctx     context.Context
}

func (s *managerTokenSource) Token() (*oauth2.Token, error) {
	record, err := s.manager.validRecord(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: record.AccessToken,
		TokenType:   "Bearer",
		// Report the margin-adjusted expiry so the oauth2 transport
		// comes back to the manager before the token actually lapses.
		Expiry: record.Expiry.Add(-s.manager.margin),
	}, nil
}
