// Package writer implements the batch writer for message history.
//
// HistoryWriter subscribes to message and message_status events, queues
// them, and writes batches to PostgreSQL with pgx.Batch. Messages are
// inserted once (ON CONFLICT DO NOTHING); delivery status is updated in place.
package writer
