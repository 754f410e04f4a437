package store

import (
	"github.com/rickgao/chatlink/internal/connection"
)

// EventSource is the subscription half of connection.Manager.
type EventSource interface {
	Subscribe(connection.EventType, connection.Listener)
	Unsubscribe(connection.EventType, connection.Listener) bool
}

// Bind applies events from src to s until the returned func is called.
func (s *Store) Bind(src EventSource) (unbind func()) {
	handlers := map[connection.EventType]connection.Listener{
		connection.EventConnecting: connection.Listen(func(connection.Event) {
			s.SetConnectionStatus(StatusConnecting)
		}),
		connection.EventConnected: connection.Listen(func(connection.Event) {
			s.SetConnectionStatus(StatusConnected)
		}),
		connection.EventDisconnected: connection.Listen(func(connection.Event) {
			s.SetConnectionStatus(StatusDisconnected)
			s.clearTyping()
		}),
		connection.EventMessage: connection.OnMessage(func(ev connection.MessageReceived) {
			s.AddMessage(ev.Message)
			s.SetTyping(ev.Message.ContactID, false)
		}),
		connection.EventMessageStatus: connection.OnMessageStatus(func(ev connection.MessageStatusChanged) {
			if !s.UpdateMessageStatus(ev.MessageID, ev.Status) {
				s.logger.Debug("status for unknown message", "message_id", ev.MessageID, "status", ev.Status)
			}
		}),
		connection.EventTypingStart: connection.Listen(func(ev connection.Event) {
			s.SetTyping(ev.(connection.TypingStarted).ContactID, true)
		}),
		connection.EventTypingStop: connection.Listen(func(ev connection.Event) {
			s.SetTyping(ev.(connection.TypingStopped).ContactID, false)
		}),
		connection.EventPresenceUpdate: connection.Listen(func(ev connection.Event) {
			p := ev.(connection.PresenceUpdated)
			if !s.UpdateContactStatus(p.ContactID, p.Status) {
				s.logger.Debug("presence for unknown contact", "contact_id", p.ContactID)
			}
		}),
	}

	for t, l := range handlers {
		src.Subscribe(t, l)
	}

	return func() {
		for t, l := range handlers {
			src.Unsubscribe(t, l)
		}
	}
}

func (s *Store) clearTyping() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.typing)
}
