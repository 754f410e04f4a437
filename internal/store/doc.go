// Package store holds the client-side chat state: contacts, message
// history, unread counters, typing indicators and the connection status.
//
// Bind wires a Store to a connection.Manager so inbound events update it.
package store
