package faults

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies a failure so callers and remote clients can decide
// whether retrying, re-authorizing, or fixing the request is the right
// reaction.
type Kind string

const (
	// Authorize-run failures. Never retried automatically.
	AuthorizationDenied  Kind = "authorization_denied"
	AuthorizationTimeout Kind = "authorization_timeout"
	TokenExchangeFailed  Kind = "token_exchange_failed"

	// Unauthorized means the stored credential is absent, revoked, or
	// rejected by the backend. Operator action (re-running authorize)
	// is required; retrying the call cannot succeed.
	Unauthorized Kind = "unauthorized"

	// TokenRefreshTransient is a network or backend hiccup during token
	// refresh. The identical call may be resubmitted.
	TokenRefreshTransient Kind = "token_refresh_transient"

	// Client mistakes.
	InvalidArgument Kind = "invalid_argument"
	UnknownTool     Kind = "unknown_tool"

	NotFound Kind = "not_found"

	// BackendUnavailable covers rate limiting (429) and 5xx responses
	// from the calendar backend. Retryable.
	BackendUnavailable Kind = "backend_unavailable"

	// BackendError is any other non-2xx backend response, with the
	// backend's own message preserved for diagnostics.
	BackendError Kind = "backend_error"

	StorageError Kind = "storage_error"
)

// retryableKinds are the kinds for which resubmitting the identical
// request may succeed without operator action.
var retryableKinds = map[Kind]bool{
	TokenRefreshTransient: true,
	BackendUnavailable:    true,
}

// Fault is the single error shape shared by the credential layer, the
// calendar gateway, and the tool dispatcher.
type Fault struct {
	Kind      Kind   `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`

	cause error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error {
	return f.cause
}

// New creates a Fault with the retryable flag derived from the kind.
func New(kind Kind, message string) *Fault {
	return &Fault{Kind: kind, Message: message, Retryable: retryableKinds[kind]}
}

// Newf is New with a format string.
func Newf(kind Kind, format string, args ...interface{}) *Fault {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap creates a Fault that carries err as its cause. The cause is
// preserved for errors.Is/As but only message text crosses the wire.
func Wrap(kind Kind, message string, err error) *Fault {
	f := New(kind, message)
	f.cause = err
	return f
}

// From returns err as a *Fault, converting unknown errors to a
// non-retryable BackendError so every failure has a kind.
func From(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return Wrap(BackendError, err.Error(), err)
}

// KindOf returns the kind of err, or the empty string if err carries
// no Fault.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// Is reports whether err carries a Fault of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether resubmitting the failed request may
// succeed. Unknown errors are not retryable.
func IsRetryable(err error) bool {
	var f *Fault
	if errors.As(err, &f) {
		return f.Retryable
	}
	return false
}

// MarshalText renders the fault as the JSON error outcome sent to
// clients: {"kind":...,"message":...,"retryable":...}.
func MarshalText(err error) string {
	data, merr := json.Marshal(From(err))
	if merr != nil {
		return fmt.Sprintf(`{"kind":"backend_error","message":%q,"retryable":false}`, err.Error())
	}
	return string(data)
}
