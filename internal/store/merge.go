package store

import (
	"slices"

	"github.com/rickgao/chatlink/internal/model"
)

// ContactIDs returns the ids of all contacts in list order.
func (s *Store) ContactIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.contacts))
	for i, c := range s.contacts {
		ids[i] = c.ID
	}
	return ids
}

// MergeHistory folds fetched history into the store. Known ids take the
// fetched status when it is valid; unknown ones are added as if they had
// just arrived. The history is kept in timestamp order. Returns how many
// messages were added.
func (s *Store) MergeHistory(messages []model.Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]int, len(s.messages))
	for i, m := range s.messages {
		known[m.ID] = i
	}

	added := 0
	for _, msg := range messages {
		if i, ok := known[msg.ID]; ok {
			if msg.Status.Valid() {
				s.messages[i].Status = msg.Status
			}
			continue
		}
		known[msg.ID] = len(s.messages)
		s.messages = append(s.messages, msg)
		added++

		if i := s.indexLocked(msg.ContactID); i >= 0 && msg.Timestamp.After(s.contacts[i].LastMessageTime) {
			s.contacts[i].LastMessage = msg.Content
			s.contacts[i].LastMessageTime = msg.Timestamp
		}
		if !msg.IsOwn && s.selected != msg.ContactID {
			s.unread[msg.ContactID]++
		}
	}

	if added > 0 {
		slices.SortStableFunc(s.messages, func(a, b model.Message) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
	}
	return added
}
