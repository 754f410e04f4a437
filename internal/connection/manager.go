package connection

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/chatlink/internal/buffer"
	"github.com/rickgao/chatlink/internal/mock"
	"github.com/rickgao/chatlink/internal/model"
	"github.com/rickgao/chatlink/internal/router"
)

// Manager owns one chat connection: its lifecycle, reconnect policy,
// heartbeat and the event subscribers.
//
// All state changes happen under mu. Events produced by a change are queued
// while mu is held and delivered after it is released by a single drainer,
// so listeners run in order, never concurrently, and may call back into
// the Manager.
type Manager struct {
	cfg     Config
	logger  *slog.Logger
	sched   Scheduler
	rnd     Randomness
	content ContentSource
	dialer  Dialer
	router  *router.Router
	newID   func() string

	listeners *registry
	outbox    *buffer.Queue[Event]
	draining  atomic.Bool

	mu         sync.Mutex
	state      State
	endpoint   Endpoint // applies to the next attempt
	active     Endpoint // the current attempt or session
	attempts   int
	session    uint64 // bumped on every attempt and teardown
	conn       Conn
	cancelDial context.CancelFunc
	pending    chan error // completion of the in-flight Connect
	timers     timerSet
	stats      managerCounters
}

type managerCounters struct {
	connects    int64
	failures    int64
	giveUps     int64
	sent        int64
	frames      int64
	parseErrors int64
	events      int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithScheduler replaces the runtime clock.
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) { m.sched = s }
}

// WithRandomness replaces the random source used by the simulated transport.
func WithRandomness(r Randomness) Option {
	return func(m *Manager) { m.rnd = r }
}

// WithContentSource replaces the simulated message and contact generator.
func WithContentSource(c ContentSource) Option {
	return func(m *Manager) { m.content = c }
}

// WithDialer sets the socket driver used when the endpoint is a real server.
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dialer = d }
}

// WithRouter sets the wire codec.
func WithRouter(r *router.Router) Option {
	return func(m *Manager) { m.router = r }
}

// WithIDGenerator sets how simulated inbound messages get their ids.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// NewManager creates a Manager in the disconnected state.
func NewManager(cfg Config, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		cfg:       cfg,
		logger:    logger,
		sched:     SystemScheduler,
		newID:     model.NewMessageID,
		listeners: newRegistry(logger),
		outbox:    buffer.New[Event](64),
		endpoint:  cfg.Endpoint,
		timers:    newTimerSet(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.rnd == nil || m.content == nil {
		gen := mock.NewGenerator(nil)
		if m.rnd == nil {
			m.rnd = gen
		}
		if m.content == nil {
			m.content = gen
		}
	}
	if m.router == nil {
		m.router = router.New(logger)
	}
	if m.dialer == nil {
		tc := DefaultTransportConfig()
		tc.HandshakeTimeout = cfg.HandshakeTimeout
		m.dialer = NewGorillaDialer(tc, logger)
	}

	return m
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// Connect starts a connection attempt unless one is in flight or the
// connection is already up. The returned channel receives exactly one
// value: nil on success (or if already connected), ErrAlreadyConnecting,
// ErrAborted if Disconnect or Reconfigure interrupts the attempt, or an
// error matching ErrConnectionFailed.
func (m *Manager) Connect() <-chan error {
	done := make(chan error, 1)

	m.mu.Lock()
	switch m.state {
	case StateConnected:
		done <- nil
	case StateConnecting:
		done <- ErrAlreadyConnecting
	default:
		m.beginAttemptLocked(done)
	}
	m.mu.Unlock()

	m.drain()
	return done
}

// Disconnect cancels all pending work and closes the connection. A
// disconnected event is emitted when a session or attempt was live.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	prev := m.state
	m.stopSessionLocked()
	m.resolveLocked(ErrAborted)
	m.state = StateDisconnected
	if prev == StateConnecting || prev == StateConnected {
		m.emitLocked(Disconnected{})
		m.logger.Info("disconnected", "previous_state", prev.String())
	}
	m.mu.Unlock()

	m.drain()
}

// Send hands msg to the transport. It returns ErrNotConnected, doing
// nothing else, unless the connection is up. Transport write failures are
// logged and handled by the reconnect path, not returned.
func (m *Manager) Send(msg model.Outbound) error {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return ErrNotConnected
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = m.sched.Now()
	}

	var err error
	if m.conn != nil {
		data, encErr := m.router.Encode(msg)
		if encErr != nil {
			err = wrapError(KindParseError, "encode outbound frame", encErr)
		} else if werr := m.conn.Write(data); werr != nil {
			m.logger.Warn("dropping outbound frame", "error", werr, "kind", msg.Kind)
		} else {
			m.stats.sent++
		}
	} else {
		m.stats.sent++
		m.simulateSendLocked(msg)
	}
	m.mu.Unlock()

	m.drain()
	return err
}

// Subscribe registers l for events of type t. The same listener may be
// registered more than once and is then invoked once per registration.
func (m *Manager) Subscribe(t EventType, l Listener) {
	m.listeners.add(t, l)
}

// Unsubscribe removes the first registration of l for t.
func (m *Manager) Unsubscribe(t EventType, l Listener) bool {
	return m.listeners.remove(t, l)
}

// ListenerCount returns the number of registrations for t.
func (m *Manager) ListenerCount(t EventType) int {
	return m.listeners.count(t)
}

// Reconfigure merges p into the endpoint. A live session or attempt is torn
// down and a fresh attempt is scheduled after ReconfigureDelay; otherwise the
// new endpoint is used by the next attempt.
func (m *Manager) Reconfigure(p EndpointPatch) {
	m.mu.Lock()
	old := m.endpoint
	m.endpoint = p.apply(m.endpoint)

	m.logger.Info("endpoint reconfigured",
		"use_real_server", m.endpoint.UseRealServer,
		"url", m.endpoint.ServerURL,
		"state", m.state.String(),
		"changed", old != m.endpoint,
	)

	if m.state == StateConnected || m.state == StateConnecting {
		m.stopSessionLocked()
		m.resolveLocked(ErrAborted)
		m.state = StateDisconnected
		m.emitLocked(Disconnected{})
		m.scheduleLocked(timerReconnect, m.cfg.ReconfigureDelay, func() {
			m.beginAttemptLocked(nil)
		})
	}
	m.mu.Unlock()

	m.drain()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Endpoint returns the endpoint the next attempt will use.
func (m *Manager) Endpoint() Endpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endpoint
}

// Stats returns current counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		State:          m.state.String(),
		Endpoint:       m.endpoint,
		Attempts:       m.attempts,
		Connects:       m.stats.connects,
		Failures:       m.stats.failures,
		GiveUps:        m.stats.giveUps,
		MessagesSent:   m.stats.sent,
		FramesReceived: m.stats.frames,
		ParseErrors:    m.stats.parseErrors,
		EventsEmitted:  m.stats.events,
		ListenerPanics: m.listeners.panicCount(),
		PendingTimers:  m.timers.len(),
	}
}

// Router returns the wire codec in use.
func (m *Manager) Router() *router.Router {
	return m.router
}

// -----------------------------------------------------------------------------
// Lifecycle (mu held)
// -----------------------------------------------------------------------------

func (m *Manager) beginAttemptLocked(done chan error) {
	m.timers.cancel(timerReconnect)
	m.session++
	m.state = StateConnecting
	m.active = m.endpoint
	m.pending = done

	m.logger.Info("connecting",
		"use_real_server", m.active.UseRealServer,
		"url", m.active.ServerURL,
		"attempt", m.attempts,
	)
	m.emitLocked(Connecting{Endpoint: m.active, Attempt: m.attempts})

	if !m.active.UseRealServer {
		m.simulateHandshakeLocked()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelDial = cancel
	go m.dial(ctx, m.session, m.active.ServerURL)
}

// dial runs outside the lock and posts its result back.
func (m *Manager) dial(ctx context.Context, session uint64, url string) {
	conn, err := m.dialer.Dial(ctx, url)

	m.mu.Lock()
	if session != m.session || m.state != StateConnecting {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		m.failLocked(wrapError(KindHandshakeFailure, "dial "+url, err))
	} else {
		m.establishLocked(conn)
	}
	m.mu.Unlock()

	m.drain()
}

// establishLocked completes a handshake. conn is nil for the simulated transport.
func (m *Manager) establishLocked(conn Conn) {
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}

	m.conn = conn
	m.state = StateConnected
	m.attempts = 0
	m.stats.connects++

	if conn != nil {
		conn.Start(&sessionHandler{m: m, session: m.session})
	}

	m.logger.Info("connected",
		"use_real_server", m.active.UseRealServer,
		"url", m.active.ServerURL,
	)
	m.emitLocked(Connected{Endpoint: m.active})
	m.resolveLocked(nil)

	m.scheduleHeartbeatLocked()
	if conn == nil {
		m.scheduleTrafficLocked()
	}
}

// failLocked is the single failure path for handshake and transport errors.
func (m *Manager) failLocked(cause error) {
	m.stopSessionLocked()
	m.stats.failures++
	m.resolveLocked(cause)

	if m.attempts < m.cfg.MaxReconnectAttempts {
		m.attempts++
		delay := backoffDelay(m.cfg.ReconnectBaseDelay, m.cfg.ReconnectMaxDelay, m.attempts)
		m.state = StateReconnecting

		m.logger.Warn("connection failed, scheduling reconnect",
			"error", cause,
			"attempt", m.attempts,
			"max_attempts", m.cfg.MaxReconnectAttempts,
			"wait", delay,
		)
		m.emitLocked(Disconnected{Err: cause, RetryIn: delay})
		m.scheduleLocked(timerReconnect, delay, func() {
			m.beginAttemptLocked(nil)
		})
		return
	}

	m.state = StateGivenUp
	m.stats.giveUps++
	m.logger.Error("giving up on reconnection",
		"error", cause,
		"attempts", m.attempts,
	)
	m.emitLocked(Disconnected{Err: cause})
	m.emitLocked(MaxReconnectAttemptsReached{
		Attempts: m.attempts,
		Err:      wrapError(KindMaxRetriesExceeded, "max reconnect attempts reached", cause),
	})
}

// stopSessionLocked cancels every timer, aborts a dial in flight and closes
// the socket. Callbacks from the old session are ignored afterwards.
func (m *Manager) stopSessionLocked() {
	if n := m.timers.cancelAll(); n > 0 {
		m.logger.Debug("cancelled timers", "count", n)
	}
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			m.logger.Debug("error closing connection", "error", err)
		}
		m.conn = nil
	}
	m.session++
}

func (m *Manager) resolveLocked(err error) {
	if m.pending == nil {
		return
	}
	m.pending <- err
	m.pending = nil
}

func (m *Manager) scheduleHeartbeatLocked() {
	if m.cfg.HeartbeatInterval <= 0 {
		return
	}
	m.scheduleLocked(timerHeartbeat, m.cfg.HeartbeatInterval, m.heartbeatLocked)
}

func (m *Manager) heartbeatLocked() {
	if m.state != StateConnected {
		return
	}

	if m.conn == nil {
		if m.simulateDropLocked() {
			m.failLocked(wrapError(KindTransportError, "heartbeat", ErrSimulatedDrop))
			return
		}
	} else {
		last := m.conn.LastActivity()
		if idle := m.sched.Now().Sub(last); idle > m.cfg.PingTimeout {
			m.logger.Warn("no activity, connection stale",
				"last_activity", last,
				"timeout", m.cfg.PingTimeout,
			)
			m.failLocked(wrapError(KindTransportError, "heartbeat", ErrStaleConnection))
			return
		}
		if err := m.conn.Ping(); err != nil {
			m.logger.Debug("failed to send ping", "error", err)
		}
	}

	m.scheduleHeartbeatLocked()
}

// scheduleLocked arms a tracked timer. fn runs with mu held, and only if
// the timer has not been cancelled in the meantime.
func (m *Manager) scheduleLocked(kind timerKind, d time.Duration, fn func()) {
	id := m.timers.reserve()
	t := m.sched.AfterFunc(d, func() { m.fire(id, fn) })
	m.timers.track(id, kind, t)
}

func (m *Manager) fire(id uint64, fn func()) {
	m.mu.Lock()
	if !m.timers.take(id) {
		m.mu.Unlock()
		return
	}
	fn()
	m.mu.Unlock()

	m.drain()
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

func (m *Manager) emitLocked(ev Event) {
	m.stats.events++
	m.outbox.Push(ev)
}

// drain delivers queued events. Only one goroutine drains at a time; a
// caller that loses the race leaves its events to the active drainer.
func (m *Manager) drain() {
	for {
		if !m.draining.CompareAndSwap(false, true) {
			return
		}
		for {
			ev, ok := m.outbox.TryPop()
			if !ok {
				break
			}
			m.listeners.dispatch(ev)
		}
		m.draining.Store(false)

		// An event pushed after the last TryPop but before Store(false)
		// would otherwise be stranded.
		if m.outbox.Len() == 0 {
			return
		}
	}
}

// -----------------------------------------------------------------------------
// Socket callbacks
// -----------------------------------------------------------------------------

type sessionHandler struct {
	m       *Manager
	session uint64
}

func (h *sessionHandler) HandleFrame(data []byte, receivedAt time.Time) {
	h.m.handleFrame(h.session, data, receivedAt)
}

func (h *sessionHandler) HandleClose(err error) {
	h.m.handleClose(h.session, err)
}

func (m *Manager) handleFrame(session uint64, data []byte, receivedAt time.Time) {
	frame, err := m.router.Decode(data, receivedAt)

	m.mu.Lock()
	if session != m.session || m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	m.stats.frames++
	if err != nil {
		m.stats.parseErrors++
		m.logger.Debug("inbound frame ignored", "error", wrapError(KindParseError, "decode frame", err))
	} else {
		m.emitLocked(frameEvent(frame))
	}
	m.mu.Unlock()

	m.drain()
}

func (m *Manager) handleClose(session uint64, err error) {
	m.mu.Lock()
	if session != m.session || m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	m.failLocked(wrapError(KindTransportError, "connection closed", err))
	m.mu.Unlock()

	m.drain()
}

func frameEvent(f router.Frame) Event {
	switch f.Kind {
	case router.KindMessageStatus:
		return MessageStatusChanged{MessageID: f.MessageID, Status: f.Status}
	case router.KindTypingStart:
		return TypingStarted{ContactID: f.ContactID}
	case router.KindTypingStop:
		return TypingStopped{ContactID: f.ContactID}
	case router.KindPresenceUpdate:
		return PresenceUpdated{ContactID: f.ContactID, Status: f.Presence}
	default:
		return MessageReceived{Message: f.Message}
	}
}
