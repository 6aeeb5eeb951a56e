package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/calendar-mcp/internal/faults"
	"github.com/teemow/calendar-mcp/internal/logging"
)

const successPage = `<!DOCTYPE html>
<html><head><title>Authorization complete</title></head>
<body><p>Authorization completed. You may close this tab.</p></body></html>`

const deniedPage = `<!DOCTYPE html>
<html><head><title>Authorization failed</title></head>
<body><p>Authorization was not granted. You may close this tab.</p></body></html>`

// callback carries the outcome of the OAuth redirect.
type callback struct {
	code     string
	errParam string
}

// Flow performs the interactive OAuth authorization-code exchange
// exactly once per Run: it starts a loopback redirect receiver,
// presents the consent URL to the operator, waits for the callback,
// exchanges the code for tokens, and writes the resulting record
// through the store. The receiver is torn down on every exit path.
type Flow struct {
	conf    *oauth2.Config
	store   *Store
	port    int
	path    string
	timeout time.Duration
	logger  *slog.Logger

	// present shows the consent URL to the operator. Rendering is an
	// external concern; the default prints the URL.
	present func(url string)
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithAuthTimeout bounds the wait for the consent callback.
func WithAuthTimeout(d time.Duration) FlowOption {
	return func(f *Flow) { f.timeout = d }
}

// WithPresenter replaces how the consent URL is shown to the operator.
func WithPresenter(present func(url string)) FlowOption {
	return func(f *Flow) { f.present = present }
}

// WithFlowLogger sets the logger used by the flow.
func WithFlowLogger(logger *slog.Logger) FlowOption {
	return func(f *Flow) { f.logger = logger }
}

// NewFlow creates an authorization flow. The receiver listens on
// 127.0.0.1:port at callbackPath; conf.RedirectURL is set to match, so
// the same host, port, and path must be registered with the identity
// provider.
func NewFlow(conf *oauth2.Config, store *Store, port int, callbackPath string, opts ...FlowOption) *Flow {
	f := &Flow{
		conf:    conf,
		store:   store,
		port:    port,
		path:    callbackPath,
		timeout: 5 * time.Minute,
		logger:  slog.Default(),
		present: func(url string) {
			fmt.Printf("Visit this URL to authorize calendar access:\n\n  %s\n\n", url)
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.conf.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d%s", port, callbackPath)
	return f
}

// Run executes the flow and returns the stored token record.
func (f *Flow) Run(ctx context.Context) (*TokenRecord, error) {
	state, err := randomState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state parameter: %w", err)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", f.port))
	if err != nil {
		return nil, fmt.Errorf("failed to start authorization receiver on port %d: %w", f.port, err)
	}

	results := make(chan callback, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(f.path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		cb := callback{code: q.Get("code"), errParam: q.Get("error")}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if cb.errParam != "" {
			fmt.Fprint(w, deniedPage)
		} else {
			fmt.Fprint(w, successPage)
		}

		// Only the first callback counts.
		select {
		case results <- cb:
		default:
		}
	})

	receiver := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if serr := receiver.Serve(ln); serr != http.ErrServerClosed {
			f.logger.Warn("authorization receiver stopped", logging.Err(serr))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := receiver.Shutdown(shutdownCtx); serr != nil {
			f.logger.Warn("failed to shut down authorization receiver", logging.Err(serr))
		}
	}()

	authURL := f.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	f.present(authURL)
	f.logger.Info("waiting for authorization callback",
		"redirect_uri", f.conf.RedirectURL, "timeout", f.timeout)

	var cb callback
	select {
	case cb = <-results:
	case <-time.After(f.timeout):
		return nil, faults.Newf(faults.AuthorizationTimeout,
			"no authorization callback received within %s", f.timeout)
	case <-ctx.Done():
		return nil, faults.Wrap(faults.AuthorizationTimeout,
			"authorization cancelled", ctx.Err())
	}

	if cb.errParam != "" {
		return nil, faults.Newf(faults.AuthorizationDenied,
			"authorization denied by operator: %s", cb.errParam)
	}
	if cb.code == "" {
		return nil, faults.New(faults.AuthorizationDenied,
			"authorization callback carried neither code nor error")
	}

	tok, err := f.conf.Exchange(ctx, cb.code)
	if err != nil {
		return nil, faults.Wrap(faults.TokenExchangeFailed,
			"failed to exchange authorization code for tokens", err)
	}
	if tok.RefreshToken == "" {
		f.logger.Warn("token endpoint returned no refresh token; silent refresh will not be possible")
	}

	record := newRecordFromToken(tok, "", f.conf.Scopes)
	if err := f.store.Save(record); err != nil {
		return nil, err
	}

	f.logger.Info("authorization complete",
		"token_file", f.store.Path(),
		"access_token", logging.SanitizeToken(record.AccessToken),
		"expiry", record.Expiry)
	return record, nil
}

func randomState() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
