package app_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/chatrelay/internal/app"
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/dkeye/chatrelay/pkg/protocol"
)

var errFull = errors.New("queue full")

// fakeConn records every frame it accepts.
type fakeConn struct {
	id domain.ConnectionID

	mu     sync.Mutex
	frames []protocol.Envelope
	full   bool
	closed bool
}

func newConn(id string) *fakeConn { return &fakeConn{id: domain.ConnectionID(id)} }

func (c *fakeConn) ID() domain.ConnectionID { return c.id }

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	if c.full {
		return errFull
	}
	var env protocol.Envelope
	if err := json.Unmarshal(f, &env); err != nil {
		return err
	}
	c.frames = append(c.frames, env)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		out = append(out, f.Type)
	}
	return out
}

// all returns the data of every frame of the given event, oldest first.
func (c *fakeConn) all(event string) []json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []json.RawMessage
	for _, f := range c.frames {
		if f.Type == event {
			out = append(out, f.Data)
		}
	}
	return out
}

func (c *fakeConn) count(event string) int { return len(c.all(event)) }

// last decodes the newest frame of event into v.
func (c *fakeConn) last(t *testing.T, event string, v any) {
	t.Helper()
	frames := c.all(event)
	require.NotEmpty(t, frames, "no %s frame", event)
	require.NoError(t, json.Unmarshal(frames[len(frames)-1], v))
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

// manualClock fires timers only when told to.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

func newClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) app.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs due timers on the calling goroutine.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

type fixture struct {
	orch  *app.Orchestrator
	clock *manualClock
}

func newFixture(t *testing.T, ringTimeout time.Duration) *fixture {
	t.Helper()
	clock := newClock()
	orch := app.NewOrchestrator(app.Options{
		Policy:      app.SimplePolicy{},
		Metrics:     app.NewMetrics(nil),
		RingTimeout: ringTimeout,
		Clock:       clock,
	})
	return &fixture{orch: orch, clock: clock}
}

func (f *fixture) connect(t *testing.T, uid string) *fakeConn {
	t.Helper()
	conn := newConn("conn-" + uid)
	require.True(t, f.orch.Connect(t.Context(), domain.UserID(uid), conn))
	return conn
}

func decodeUsers(t *testing.T, raw json.RawMessage) []domain.UserID {
	t.Helper()
	var users []domain.UserID
	require.NoError(t, json.Unmarshal(raw, &users))
	return users
}
