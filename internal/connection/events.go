package connection

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/chatlink/internal/model"
)

// EventType is the tag consumers subscribe to.
type EventType string

const (
	EventConnecting                  EventType = "connecting"
	EventConnected                   EventType = "connected"
	EventDisconnected                EventType = "disconnected"
	EventMessage                     EventType = "message"
	EventMessageStatus               EventType = "message_status"
	EventTypingStart                 EventType = "typing_start"
	EventTypingStop                  EventType = "typing_stop"
	EventPresenceUpdate              EventType = "presence_update"
	EventMaxReconnectAttemptsReached EventType = "max_reconnect_attempts_reached"
)

// EventTypes lists every event tag in a stable order.
var EventTypes = []EventType{
	EventConnecting,
	EventConnected,
	EventDisconnected,
	EventMessage,
	EventMessageStatus,
	EventTypingStart,
	EventTypingStop,
	EventPresenceUpdate,
	EventMaxReconnectAttemptsReached,
}

// Event is implemented by every event payload.
type Event interface {
	Type() EventType
}

// Connecting is emitted when a connection attempt starts.
type Connecting struct {
	Endpoint Endpoint
	Attempt  int // Consecutive failures before this attempt
}

// Connected is emitted when a handshake succeeds.
type Connected struct {
	Endpoint Endpoint
}

// Disconnected is emitted when a connecting or connected session ends.
// Err is nil for an explicit Disconnect. RetryIn is the scheduled backoff,
// zero when no reconnect is pending.
type Disconnected struct {
	Err     error
	RetryIn time.Duration
}

// MessageReceived carries an inbound chat message.
type MessageReceived struct {
	Message model.Message
}

// MessageStatusChanged reports delivery progress of an outbound message.
type MessageStatusChanged struct {
	MessageID string
	Status    model.DeliveryStatus
}

// TypingStarted reports that a contact began typing.
type TypingStarted struct {
	ContactID string
}

// TypingStopped reports that a contact stopped typing.
type TypingStopped struct {
	ContactID string
}

// PresenceUpdated reports a contact's new availability.
type PresenceUpdated struct {
	ContactID string
	Status    model.PresenceStatus
}

// MaxReconnectAttemptsReached is emitted once when automatic reconnection gives up.
type MaxReconnectAttemptsReached struct {
	Attempts int
	Err      error
}

func (Connecting) Type() EventType           { return EventConnecting }
func (Connected) Type() EventType            { return EventConnected }
func (Disconnected) Type() EventType         { return EventDisconnected }
func (MessageReceived) Type() EventType      { return EventMessage }
func (MessageStatusChanged) Type() EventType { return EventMessageStatus }
func (TypingStarted) Type() EventType        { return EventTypingStart }
func (TypingStopped) Type() EventType        { return EventTypingStop }
func (PresenceUpdated) Type() EventType      { return EventPresenceUpdate }
func (MaxReconnectAttemptsReached) Type() EventType {
	return EventMaxReconnectAttemptsReached
}

// -----------------------------------------------------------------------------
// Listeners
// -----------------------------------------------------------------------------

// Listener receives events. Listeners are matched by == on Unsubscribe, so
// implementations should be pointers or other comparable values.
type Listener interface {
	HandleEvent(Event)
}

type funcListener struct {
	fn func(Event)
}

func (l *funcListener) HandleEvent(ev Event) { l.fn(ev) }

// Listen wraps fn as a Listener. Each call returns a distinct listener;
// keep the result to unsubscribe later.
func Listen(fn func(Event)) Listener {
	return &funcListener{fn: fn}
}

// OnMessage returns a listener that only sees MessageReceived payloads.
func OnMessage(fn func(MessageReceived)) Listener {
	return Listen(func(ev Event) {
		if m, ok := ev.(MessageReceived); ok {
			fn(m)
		}
	})
}

// OnMessageStatus returns a listener that only sees MessageStatusChanged payloads.
func OnMessageStatus(fn func(MessageStatusChanged)) Listener {
	return Listen(func(ev Event) {
		if s, ok := ev.(MessageStatusChanged); ok {
			fn(s)
		}
	})
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

// registry holds ordered listener lists per event type.
type registry struct {
	logger *slog.Logger

	mu        sync.RWMutex
	listeners map[EventType][]Listener
	panics    int64
}

func newRegistry(logger *slog.Logger) *registry {
	return &registry{
		logger:    logger,
		listeners: make(map[EventType][]Listener),
	}
}

// add appends l; duplicates are kept and each is invoked.
func (r *registry) add(t EventType, l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[t] = append(r.listeners[t], l)
}

// remove drops the first registration equal to l.
func (r *registry) remove(t EventType, l Listener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.listeners[t]
	for i, existing := range list {
		if existing == l {
			next := make([]Listener, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			r.listeners[t] = next
			return true
		}
	}
	return false
}

func (r *registry) count(t EventType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[t])
}

func (r *registry) panicCount() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.panics
}

// dispatch invokes the listeners registered for ev at call time, in order.
// Changes made by a listener to the registry apply from the next event.
func (r *registry) dispatch(ev Event) {
	r.mu.RLock()
	list := r.listeners[ev.Type()]
	r.mu.RUnlock()

	for _, l := range list {
		r.invoke(l, ev)
	}
}

func (r *registry) invoke(l Listener, ev Event) {
	defer func() {
		if p := recover(); p != nil {
			r.mu.Lock()
			r.panics++
			r.mu.Unlock()
			r.logger.Error("event listener panicked",
				"event", ev.Type(),
				"panic", fmt.Sprint(p),
			)
		}
	}()
	l.HandleEvent(ev)
}
