package connection

import (
	"time"

	"github.com/rickgao/chatlink/internal/model"
)

// Randomness supplies uniform draws in [0,1) to the simulated transport.
type Randomness interface {
	Float64() float64
}

// ContentSource generates simulated traffic.
type ContentSource interface {
	MessageText() string
	ContactID() string
	Presence() model.PresenceStatus
}

// Everything below runs with mu held and only for the simulated transport.

func (m *Manager) simulateHandshakeLocked() {
	sim := m.cfg.Simulation
	delay := m.jitter(sim.HandshakeDelay, sim.HandshakeJitter)

	m.scheduleLocked(timerHandshake, delay, func() {
		if m.rnd.Float64() > sim.HandshakeFailureRate {
			m.establishLocked(nil)
			return
		}
		m.failLocked(wrapError(KindHandshakeFailure, "simulated handshake rejected", nil))
	})
}

func (m *Manager) simulateDropLocked() bool {
	return m.roll(m.cfg.Simulation.DropRate)
}

func (m *Manager) scheduleTrafficLocked() {
	if m.cfg.Simulation.TrafficInterval <= 0 {
		return
	}
	m.scheduleLocked(timerTraffic, m.cfg.Simulation.TrafficInterval, m.trafficLocked)
}

func (m *Manager) trafficLocked() {
	if m.state != StateConnected {
		return
	}
	sim := m.cfg.Simulation

	if m.roll(sim.IncomingMessageRate) {
		m.simulateIncomingLocked(m.content.ContactID())
	}
	if m.roll(sim.TypingRate) {
		m.simulateTypingLocked(m.content.ContactID())
	}
	if m.roll(sim.PresenceRate) {
		m.emitLocked(PresenceUpdated{
			ContactID: m.content.ContactID(),
			Status:    m.content.Presence(),
		})
	}

	m.scheduleTrafficLocked()
}

// simulateSendLocked acknowledges an outbound chat message: delivered, then
// read, and sometimes a reply from the same contact.
func (m *Manager) simulateSendLocked(msg model.Outbound) {
	if msg.Kind != model.OutboundMessage {
		return
	}
	id := msg.Message.ID
	contactID := msg.Message.ContactID
	sim := m.cfg.Simulation

	m.scheduleLocked(timerDelivery, m.jitter(sim.DeliveredDelay, sim.DeliveredJitter), func() {
		m.emitLocked(MessageStatusChanged{MessageID: id, Status: model.StatusDelivered})

		m.scheduleLocked(timerDelivery, m.jitter(sim.ReadDelay, sim.ReadJitter), func() {
			m.emitLocked(MessageStatusChanged{MessageID: id, Status: model.StatusRead})
		})

		if m.roll(sim.ReplyRate) {
			m.simulateIncomingLocked(contactID)
		}
	})
}

func (m *Manager) simulateIncomingLocked(contactID string) {
	m.emitLocked(MessageReceived{Message: model.Message{
		ID:        m.newID(),
		ContactID: contactID,
		Content:   m.content.MessageText(),
		Timestamp: m.sched.Now(),
		IsOwn:     false,
		Status:    model.StatusRead,
	}})
}

func (m *Manager) simulateTypingLocked(contactID string) {
	sim := m.cfg.Simulation
	m.emitLocked(TypingStarted{ContactID: contactID})
	m.scheduleLocked(timerTyping, m.jitter(sim.TypingDuration, sim.TypingJitter), func() {
		m.emitLocked(TypingStopped{ContactID: contactID})
	})
}

// roll reports true with probability rate.
func (m *Manager) roll(rate float64) bool {
	return m.rnd.Float64() > 1-rate
}

func (m *Manager) jitter(base, spread time.Duration) time.Duration {
	return base + time.Duration(m.rnd.Float64()*float64(spread))
}
