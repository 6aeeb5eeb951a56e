package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Environment variables understood by the server. Flags take
// precedence; these fill in when a flag is left at its default.
const (
	EnvClientFile = "GOOGLE_OAUTH_CLIENT_FILE"
	EnvTokenFile  = "GOOGLE_OAUTH_TOKEN_FILE"
	EnvAuthPort   = "MCP_GOOGLE_CAL_AUTH_PORT"
	EnvHost       = "MCP_GOOGLE_CAL_HOST"
	EnvPort       = "MCP_GOOGLE_CAL_PORT"
)

// Defaults for the configuration surface. The auth port and callback
// path must match the redirect URI registered with Google exactly.
const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 9079
	DefaultAuthPort     = 8080
	DefaultCallbackPath = "/oauth2/callback"

	DefaultClientFileName = "google_secret.json"
	DefaultTokenFileName  = "google_token.json"

	// DefaultCallTimeout bounds a single calendar backend call so a
	// hung backend cannot pin a session's resources indefinitely.
	DefaultCallTimeout = 30 * time.Second

	// DefaultMaxInFlight caps concurrent backend calls; excess calls
	// queue rather than fail.
	DefaultMaxInFlight = 10

	// DefaultAuthTimeout bounds the wait for the browser consent
	// callback during an authorize run.
	DefaultAuthTimeout = 5 * time.Minute

	// DefaultExpiryMargin treats an access token this close to expiry
	// as already expired.
	DefaultExpiryMargin = 60 * time.Second
)

// CalendarScope is the only Google OAuth scope this server requests.
const CalendarScope = "https://www.googleapis.com/auth/calendar"

// Config holds the resolved configuration for both the authorize and
// serve commands.
type Config struct {
	// ClientFile is the OAuth client-secret JSON downloaded from Google
	// Cloud. Read-only to this system.
	ClientFile string

	// TokenFile is where the single deployment-wide token record is
	// persisted.
	TokenFile string

	// Host and Port are the SSE transport bind address.
	Host string
	Port int

	// AuthPort is the loopback port the authorize flow listens on for
	// the OAuth redirect.
	AuthPort int

	CallTimeout  time.Duration
	MaxInFlight  int
	AuthTimeout  time.Duration
	ExpiryMargin time.Duration
}

// Default returns a Config populated from environment variables,
// falling back to the documented defaults.
func Default() Config {
	return Config{
		ClientFile:   getenvOrDefault(EnvClientFile, filepath.Join(baseDir(), DefaultClientFileName)),
		TokenFile:    getenvOrDefault(EnvTokenFile, filepath.Join(baseDir(), DefaultTokenFileName)),
		Host:         getenvOrDefault(EnvHost, DefaultHost),
		Port:         getenvIntOrDefault(EnvPort, DefaultPort),
		AuthPort:     getenvIntOrDefault(EnvAuthPort, DefaultAuthPort),
		CallTimeout:  DefaultCallTimeout,
		MaxInFlight:  DefaultMaxInFlight,
		AuthTimeout:  DefaultAuthTimeout,
		ExpiryMargin: DefaultExpiryMargin,
	}
}

// baseDir is where credential files live when no explicit path is
// configured: the user config dir, or the working directory as a last
// resort.
func baseDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "calendar-mcp")
	}
	return "."
}

func getenvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
