// Package connection implements the chat connection manager.
//
// The Manager:
//   - Drives one connection through disconnected, connecting, connected,
//     reconnecting and given-up states
//   - Reconnects with exponential backoff (1s doubling, capped at 30s) and
//     gives up after a bounded number of attempts
//   - Runs a heartbeat that detects stale or dropped connections
//   - Talks to a real WebSocket server (gorilla or coder driver) or to a
//     built-in simulated transport
//   - Delivers typed events to subscribers, in order, one at a time
//
// Every timer is tracked and cancelled on Disconnect or Reconfigure, and
// callbacks from a superseded session are ignored.
package connection
