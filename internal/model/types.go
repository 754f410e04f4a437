package model

import (
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Contacts
// -----------------------------------------------------------------------------

// PresenceStatus is a contact's availability.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceOffline PresenceStatus = "offline"
)

// Valid reports whether s is a known presence value.
func (s PresenceStatus) Valid() bool {
	switch s {
	case PresenceOnline, PresenceAway, PresenceOffline:
		return true
	}
	return false
}

// Contact is a chat participant the local user can message.
type Contact struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Status          PresenceStatus `json:"status"`
	Avatar          string         `json:"avatar,omitempty"`
	LastMessage     string         `json:"lastMessage,omitempty"`
	LastMessageTime time.Time      `json:"lastMessageTime,omitzero"`
}

// -----------------------------------------------------------------------------
// Messages
// -----------------------------------------------------------------------------

// DeliveryStatus tracks an outbound message through the remote side.
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

// Valid reports whether s is a known delivery status.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case StatusSent, StatusDelivered, StatusRead:
		return true
	}
	return false
}

// Message is a single chat message, inbound or outbound.
type Message struct {
	ID        string         `json:"id"`
	ContactID string         `json:"contactId"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	IsOwn     bool           `json:"isOwn"`
	Status    DeliveryStatus `json:"status"`
}

// NewMessageID returns a fresh message identifier.
func NewMessageID() string {
	return uuid.NewString()
}

// NewOwnMessage builds a message authored by the local user, status sent.
func NewOwnMessage(contactID, content string, now time.Time) Message {
	return Message{
		ID:        NewMessageID(),
		ContactID: contactID,
		Content:   content,
		Timestamp: now,
		IsOwn:     true,
		Status:    StatusSent,
	}
}

// -----------------------------------------------------------------------------
// Outbound
// -----------------------------------------------------------------------------

// OutboundKind tags what an outbound frame carries.
type OutboundKind string

const (
	OutboundMessage  OutboundKind = "message"
	OutboundTyping   OutboundKind = "typing"
	OutboundStatus   OutboundKind = "status"
	OutboundPresence OutboundKind = "presence"
)

// Outbound is a frame the local user hands to the connection.
// Message is used when Kind is OutboundMessage; Data carries everything else.
type Outbound struct {
	Kind    OutboundKind
	Message Message
	Data    any
	SentAt  time.Time
}
