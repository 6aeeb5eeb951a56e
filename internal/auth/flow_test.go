package auth

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/calendar-mcp/internal/faults"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

// browse simulates the operator's browser: it lifts the state parameter
// from the consent URL and hits the local callback with the given query.
func browse(t *testing.T, authURL string, params url.Values) {
	t.Helper()
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)

	redirect, err := url.Parse(parsed.Query().Get("redirect_uri"))
	require.NoError(t, err)

	q := redirect.Query()
	q.Set("state", parsed.Query().Get("state"))
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	redirect.RawQuery = q.Encode()

	resp, err := http.Get(redirect.String())
	require.NoError(t, err)
	resp.Body.Close()
}

func newFlowFixture(t *testing.T, exchange http.HandlerFunc) (*Flow, *Store, int) {
	t.Helper()
	srv := httptest.NewServer(exchange)
	t.Cleanup(srv.Close)

	conf := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:  srv.URL + "/auth",
			TokenURL: srv.URL + "/token",
		},
		Scopes: []string{"https://www.googleapis.com/auth/calendar"},
	}

	store := NewStore(filepath.Join(t.TempDir(), "token.json"))
	port := freePort(t)
	return NewFlow(conf, store, port, "/oauth2/callback"), store, port
}

func TestFlowRunSuccess(t *testing.T) {
	flow, store, _ := newFlowFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "granted-code", r.FormValue("code"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`)
	})

	WithPresenter(func(authURL string) {
		go browse(t, authURL, url.Values{"code": {"granted-code"}})
	})(flow)

	record, err := flow.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "at", record.AccessToken)
	assert.Equal(t, "rt", record.RefreshToken)
	assert.True(t, record.Expiry.After(time.Now()))

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, record.AccessToken, persisted.AccessToken)
	assert.Equal(t, record.RefreshToken, persisted.RefreshToken)
}

func TestFlowRunDenied(t *testing.T) {
	flow, store, _ := newFlowFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("token endpoint must not be called when consent is denied")
	})

	WithPresenter(func(authURL string) {
		go browse(t, authURL, url.Values{"error": {"access_denied"}})
	})(flow)

	_, err := flow.Run(t.Context())
	require.Error(t, err)
	assert.Equal(t, faults.AuthorizationDenied, faults.KindOf(err))

	persisted, perr := store.Load()
	require.NoError(t, perr)
	assert.Nil(t, persisted, "denied authorization must not persist a token")
}

func TestFlowRunTimeout(t *testing.T) {
	flow, _, port := newFlowFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("token endpoint must not be called on timeout")
	})

	WithAuthTimeout(100 * time.Millisecond)(flow)
	WithPresenter(func(string) {})(flow)

	start := time.Now()
	_, err := flow.Run(t.Context())
	require.Error(t, err)
	assert.Equal(t, faults.AuthorizationTimeout, faults.KindOf(err))
	assert.Less(t, time.Since(start), 5*time.Second)

	// The receiver must have released its port.
	ln, lerr := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, lerr, "callback port must be free again after Run returns")
	ln.Close()
}

func TestFlowRunIgnoresBadState(t *testing.T) {
	flow, _, port := newFlowFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`)
	})

	WithPresenter(func(authURL string) {
		go func() {
			// A forged callback with the wrong state is rejected;
			// the genuine one afterwards completes the flow.
			resp, err := http.Get(fmt.Sprintf(
				"http://127.0.0.1:%d/oauth2/callback?state=forged&code=attacker", port))
			if err == nil {
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
				resp.Body.Close()
			}
			browse(t, authURL, url.Values{"code": {"granted-code"}})
		}()
	})(flow)

	record, err := flow.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "at", record.AccessToken)
}
