package mock

import (
	"time"

	"github.com/rickgao/chatlink/internal/model"
)

// Contacts returns the seed contact list with last-message times relative to now.
func Contacts(now time.Time) []model.Contact {
	contact := func(id, name string, status model.PresenceStatus, last string, ago time.Duration) model.Contact {
		return model.Contact{
			ID:              id,
			Name:            name,
			Status:          status,
			LastMessage:     last,
			LastMessageTime: now.Add(-ago),
		}
	}

	return []model.Contact{
		contact("1", "Alice Johnson", model.PresenceOnline, "Hey! How are you doing?", 5*time.Minute),
		contact("2", "Bob Smith", model.PresenceAway, "Let's catch up tomorrow", time.Hour),
		contact("3", "Carol Davis", model.PresenceOffline, "Thanks for the help!", 2*time.Hour),
		contact("4", "David Wilson", model.PresenceOnline, "See you at the meeting", 24*time.Hour),
		contact("5", "Emma Brown", model.PresenceOnline, "Great work on the project!", 48*time.Hour),
		contact("6", "Frank Miller", model.PresenceAway, "Can we reschedule?", 72*time.Hour),
		contact("7", "Grace Lee", model.PresenceOffline, "Happy birthday! 🎉", 96*time.Hour),
		contact("8", "Henry Taylor", model.PresenceOnline, "The files are ready", 120*time.Hour),
	}
}

// Messages returns the seed conversation history.
func Messages(now time.Time) []model.Message {
	msg := func(id, contactID, content string, ago time.Duration, own bool, status model.DeliveryStatus) model.Message {
		return model.Message{
			ID:        id,
			ContactID: contactID,
			Content:   content,
			Timestamp: now.Add(-ago),
			IsOwn:     own,
			Status:    status,
		}
	}

	return []model.Message{
		msg("1", "1", "Hey! How are you doing?", 5*time.Minute, false, model.StatusRead),
		msg("2", "1", "I'm doing great! Just working on some new projects.", 4*time.Minute, true, model.StatusRead),
		msg("3", "1", "That sounds exciting! What kind of projects?", 3*time.Minute, false, model.StatusRead),
		msg("4", "1", "Mostly backend work. Building some chat services in Go!", 2*time.Minute, true, model.StatusDelivered),
		msg("5", "2", "Let's catch up tomorrow", time.Hour, false, model.StatusRead),
		msg("6", "2", "Sounds good! What time works for you?", 59*time.Minute, true, model.StatusRead),
		msg("7", "3", "Thanks for the help!", 2*time.Hour, false, model.StatusRead),
		msg("8", "3", "You're welcome! Happy to help anytime.", 119*time.Minute, true, model.StatusRead),
	}
}
