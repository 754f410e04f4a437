package connection

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/chatlink/internal/model"
)

// -----------------------------------------------------------------------------
// Manual clock
// -----------------------------------------------------------------------------

type manualTimer struct {
	s       *manualScheduler
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// manualScheduler fires timers on the calling goroutine during Advance.
type manualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
	delays []time.Duration
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{now: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTimer{s: s, at: s.now.Add(d), seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	s.delays = append(s.delays, d)
	return t
}

func (s *manualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Advance moves the clock forward, firing due timers in order.
func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		due := s.dueLocked(target)
		if due == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = due.at
		due.fired = true
		s.mu.Unlock()

		due.f()
	}
}

func (s *manualScheduler) dueLocked(target time.Time) *manualTimer {
	var live []*manualTimer
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			live = append(live, t)
		}
	}
	s.timers = live
	sort.Slice(live, func(i, j int) bool {
		if live[i].at.Equal(live[j].at) {
			return live[i].seq < live[j].seq
		}
		return live[i].at.Before(live[j].at)
	})
	if len(live) == 0 || live[0].at.After(target) {
		return nil
	}
	return live[0]
}

func (s *manualScheduler) lastDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.delays) == 0 {
		return 0
	}
	return s.delays[len(s.delays)-1]
}

func (s *manualScheduler) live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// -----------------------------------------------------------------------------
// Scripted randomness and content
// -----------------------------------------------------------------------------

// fixedRandom returns the same draw every time. 0 fails every simulated
// handshake; 0.5 succeeds with whole-second delays and no random traffic;
// 0.99 triggers every traffic roll and heartbeat drop.
type fixedRandom struct {
	mu sync.Mutex
	v  float64
}

func (r *fixedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.v
}

func (r *fixedRandom) set(v float64) {
	r.mu.Lock()
	r.v = v
	r.mu.Unlock()
}

type staticContent struct{}

func (staticContent) MessageText() string            { return "hello" }
func (staticContent) ContactID() string              { return "1" }
func (staticContent) Presence() model.PresenceStatus { return model.PresenceAway }

// -----------------------------------------------------------------------------
// Fake socket
// -----------------------------------------------------------------------------

type fakeConn struct {
	mu      sync.Mutex
	handler Handler
	writes  [][]byte
	pings   int
	closed  bool
	last    time.Time
	started chan struct{}
}

func (c *fakeConn) Start(h Handler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
	close(c.started)
}

func (c *fakeConn) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrAlreadyClosed
	}
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings++
	return nil
}

func (c *fakeConn) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func (c *fakeConn) pingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

func (c *fakeConn) h() Handler {
	<-c.started
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler
}

type fakeDialer struct {
	mu    sync.Mutex
	now   func() time.Time
	err   error
	urls  []string
	conns []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	if d.err != nil {
		return nil, d.err
	}
	c := &fakeConn{last: d.now(), started: make(chan struct{})}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

// -----------------------------------------------------------------------------
// Event recorder
// -----------------------------------------------------------------------------

type recorder struct {
	m      *Manager
	mu     sync.Mutex
	events []Event
	states []State
}

// record subscribes to every event type and captures the state each
// listener observes.
func record(m *Manager) *recorder {
	r := &recorder{m: m}
	for _, t := range EventTypes {
		m.Subscribe(t, Listen(func(ev Event) {
			st := m.State()
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.states = append(r.states, st)
			r.mu.Unlock()
		}))
	}
	return r
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type()
	}
	return out
}

func (r *recorder) count(t EventType) int {
	n := 0
	for _, got := range r.types() {
		if got == t {
			n++
		}
	}
	return n
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) since(i int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events[i:]...)
}

func (r *recorder) disconnects() []Disconnected {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Disconnected
	for _, ev := range r.events {
		if d, ok := ev.(Disconnected); ok {
			out = append(out, d)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	m      *Manager
	sched  *manualScheduler
	rnd    *fixedRandom
	dialer *fakeDialer
	rec    *recorder
}

func newHarness(t *testing.T, endpoint Endpoint, draw float64) *harness {
	t.Helper()

	sched := newManualScheduler()
	rnd := &fixedRandom{v: draw}
	dialer := &fakeDialer{now: sched.Now}

	ids := 0
	cfg := DefaultConfig()
	cfg.Endpoint = endpoint

	m := NewManager(cfg, discardLogger(),
		WithScheduler(sched),
		WithRandomness(rnd),
		WithContentSource(staticContent{}),
		WithDialer(dialer),
		WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("sim-%d", ids)
		}),
	)

	h := &harness{m: m, sched: sched, rnd: rnd, dialer: dialer}
	h.rec = record(m)
	t.Cleanup(m.Disconnect)
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func waitResult(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for connect result")
		return nil
	}
}

func pending(done <-chan error) bool {
	select {
	case <-done:
		return false
	default:
		return true
	}
}
