package server

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestTracker(t *testing.T, timeout time.Duration) *SessionTracker {
	t.Helper()
	tracker := NewSessionTrackerWithTimeout(timeout, nil, nil)
	t.Cleanup(tracker.Stop)
	return tracker
}

func TestSessionLifecycle(t *testing.T) {
	tracker := newTestTracker(t, time.Hour)
	ctx := t.Context()

	tracker.Register(ctx, "s1")
	assert.Equal(t, 1, tracker.ActiveSessions())

	tracker.BeginRequest(ctx, "s1", "r1")
	tracker.BeginRequest(ctx, "s1", "r2")
	assert.Equal(t, 2, tracker.InFlight("s1"))

	tracker.EndRequest(ctx, "s1", "r1")
	assert.Equal(t, 1, tracker.InFlight("s1"))

	tracker.EndRequest(ctx, "s1", "r2")
	tracker.Unregister(ctx, "s1")
	assert.Equal(t, 0, tracker.ActiveSessions())
}

func TestUnregisterWithRequestsInFlight(t *testing.T) {
	tracker := newTestTracker(t, time.Hour)
	ctx := t.Context()

	tracker.Register(ctx, "s1")
	tracker.BeginRequest(ctx, "s1", "r1")

	// Disconnect while the call is still running: the record survives
	// until the call drains.
	tracker.Unregister(ctx, "s1")
	assert.Equal(t, 1, tracker.ActiveSessions())
	assert.Equal(t, 1, tracker.InFlight("s1"))

	tracker.EndRequest(ctx, "s1", "r1")
	assert.Equal(t, 0, tracker.ActiveSessions())
}

func TestBeginRequestCreatesUnknownSession(t *testing.T) {
	tracker := newTestTracker(t, time.Hour)
	ctx := t.Context()

	tracker.BeginRequest(ctx, "stdio", "r1")
	assert.Equal(t, 1, tracker.ActiveSessions())
	assert.Equal(t, 1, tracker.InFlight("stdio"))
}

func TestRegisterIsIdempotent(t *testing.T) {
	tracker := newTestTracker(t, time.Hour)
	ctx := t.Context()

	tracker.Register(ctx, "s1")
	tracker.Register(ctx, "s1")
	assert.Equal(t, 1, tracker.ActiveSessions())
}

func TestEndRequestUnknownSession(t *testing.T) {
	tracker := newTestTracker(t, time.Hour)

	assert.NotPanics(t, func() {
		tracker.EndRequest(t.Context(), "ghost", "r1")
		tracker.Unregister(t.Context(), "ghost")
	})
}

func TestStopIsIdempotent(t *testing.T) {
	tracker := NewSessionTracker(nil, nil)
	tracker.Stop()
	assert.NotPanics(t, tracker.Stop)
}

func TestStopIsSafeConcurrently(t *testing.T) {
	tracker := NewSessionTracker(nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Stop()
		}()
	}

	assert.NotPanics(t, wg.Wait)
}
