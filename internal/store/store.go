package store

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/rickgao/chatlink/internal/mock"
	"github.com/rickgao/chatlink/internal/model"
)

// ConnectionStatus is the coarse connection state shown to users.
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// Stats contains store sizes.
type Stats struct {
	Contacts int
	Messages int
	Unread   int
	Typing   int
}

// Store is safe for concurrent use. Getters return copies.
type Store struct {
	logger        *slog.Logger
	initialUnread func() int

	mu       sync.RWMutex
	contacts []model.Contact
	messages []model.Message
	selected string
	unread   map[string]int
	typing   map[string]bool
	status   ConnectionStatus
}

// Option configures a Store.
type Option func(*Store)

// WithInitialUnread sets how many unread messages a newly seen contact starts with.
func WithInitialUnread(fn func() int) Option {
	return func(s *Store) { s.initialUnread = fn }
}

// New creates an empty Store.
func New(logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		logger:        logger,
		initialUnread: mock.NewGenerator(nil).UnreadCount,
		unread:        make(map[string]int),
		typing:        make(map[string]bool),
		status:        StatusDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadMock replaces the contents with the built-in seed data.
func (s *Store) LoadMock(now time.Time) {
	s.SetContacts(mock.Contacts(now))
	s.SetMessages(mock.Messages(now))
}

// SetContacts replaces the contact list. Contacts not seen before get an
// initial unread count; existing counters are kept.
func (s *Store) SetContacts(contacts []model.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contacts = slices.Clone(contacts)
	for _, c := range contacts {
		if _, ok := s.unread[c.ID]; !ok {
			s.unread[c.ID] = s.initialUnread()
		}
	}
}

// SetMessages replaces the message history.
func (s *Store) SetMessages(messages []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = slices.Clone(messages)
}

// AddMessage appends msg and updates the contact preview. Incoming messages
// for a contact that is not selected bump its unread count.
func (s *Store) AddMessage(msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)

	if i := s.indexLocked(msg.ContactID); i >= 0 {
		s.contacts[i].LastMessage = msg.Content
		s.contacts[i].LastMessageTime = msg.Timestamp
	}

	if !msg.IsOwn && s.selected != msg.ContactID {
		s.unread[msg.ContactID]++
	}
}

// UpdateMessageStatus sets the delivery status of a message.
// Returns false if no message has that id.
func (s *Store) UpdateMessageStatus(id string, status model.DeliveryStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Status = status
			return true
		}
	}
	return false
}

// SelectContact marks contactID as the open conversation and clears its
// unread count. Returns false for an unknown contact.
func (s *Store) SelectContact(contactID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(contactID) < 0 {
		return false
	}
	s.selected = contactID
	if s.unread[contactID] > 0 {
		s.unread[contactID] = 0
	}
	return true
}

// Selected returns the open conversation's contact.
func (s *Store) Selected() (model.Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(s.selected); i >= 0 {
		return s.contacts[i], true
	}
	return model.Contact{}, false
}

// UpdateContactStatus sets a contact's presence.
func (s *Store) UpdateContactStatus(contactID string, status model.PresenceStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(contactID)
	if i < 0 {
		return false
	}
	s.contacts[i].Status = status
	return true
}

// SetTyping records whether contactID is typing.
func (s *Store) SetTyping(contactID string, typing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if typing {
		s.typing[contactID] = true
	} else {
		delete(s.typing, contactID)
	}
}

// IsTyping reports whether contactID is typing.
func (s *Store) IsTyping(contactID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typing[contactID]
}

// SetConnectionStatus records the connection status.
func (s *Store) SetConnectionStatus(status ConnectionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// ConnectionStatus returns the last recorded connection status.
func (s *Store) ConnectionStatus() ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Contact returns a contact by id.
func (s *Store) Contact(id string) (model.Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.contacts[i], true
	}
	return model.Contact{}, false
}

// SortedContacts returns contacts, most recent conversation first.
func (s *Store) SortedContacts() []model.Contact {
	s.mu.RLock()
	out := slices.Clone(s.contacts)
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b model.Contact) int {
		return b.LastMessageTime.Compare(a.LastMessageTime)
	})
	return out
}

// Messages returns the full history in insertion order.
func (s *Store) Messages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

// SelectedContactMessages returns the open conversation, or nil if no
// contact is selected.
func (s *Store) SelectedContactMessages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selected == "" {
		return nil
	}
	var out []model.Message
	for _, m := range s.messages {
		if m.ContactID == s.selected {
			out = append(out, m)
		}
	}
	return out
}

// UnreadCount returns the unread counter for contactID.
func (s *Store) UnreadCount(contactID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread[contactID]
}

// Stats returns current sizes.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unread := 0
	for _, n := range s.unread {
		unread += n
	}
	return Stats{
		Contacts: len(s.contacts),
		Messages: len(s.messages),
		Unread:   unread,
		Typing:   len(s.typing),
	}
}

func (s *Store) indexLocked(contactID string) int {
	if contactID == "" {
		return -1
	}
	return slices.IndexFunc(s.contacts, func(c model.Contact) bool {
		return c.ID == contactID
	})
}
