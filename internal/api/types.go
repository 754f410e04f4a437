package api

import "github.com/rickgao/chatlink/internal/model"

// ContactsResponse from GET /api/contacts
type ContactsResponse struct {
	Contacts []model.Contact `json:"contacts"`
}

// MessagesResponse from GET /api/messages
type MessagesResponse struct {
	Messages []model.Message `json:"messages"`
}

// Snapshot is the initial state loaded before connecting.
type Snapshot struct {
	Contacts []model.Contact
	Messages []model.Message
}
