// Package database provides the PostgreSQL connection pool and schema for
// the optional message history.
//
// The history is append-mostly: messages are inserted once and only their
// delivery status is updated afterwards.
package database
