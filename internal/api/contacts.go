package api

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/chatlink/internal/model"
)

// GetContacts fetches the contact list.
func (c *Client) GetContacts(ctx context.Context) ([]model.Contact, error) {
	var resp ContactsResponse
	if err := c.get(ctx, "/api/contacts", nil, &resp); err != nil {
		return nil, fmt.Errorf("get contacts: %w", err)
	}
	return resp.Contacts, nil
}

// GetMessages fetches message history, for one contact when contactID is
// not empty.
func (c *Client) GetMessages(ctx context.Context, contactID string) ([]model.Message, error) {
	var query url.Values
	if contactID != "" {
		query = url.Values{"contactId": {contactID}}
	}

	var resp MessagesResponse
	if err := c.get(ctx, "/api/messages", query, &resp); err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	return resp.Messages, nil
}

// LoadSnapshot fetches contacts and the full history concurrently.
func (c *Client) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		contacts, err := c.GetContacts(ctx)
		snap.Contacts = contacts
		return err
	})
	g.Go(func() error {
		messages, err := c.GetMessages(ctx, "")
		snap.Messages = messages
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Info("loaded snapshot",
		"contacts", len(snap.Contacts),
		"messages", len(snap.Messages),
	)
	return &snap, nil
}
