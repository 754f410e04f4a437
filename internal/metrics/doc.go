// Package metrics exposes chatlink runtime state over HTTP.
//
// Endpoints:
//   - /health             connection state and reconnect attempts
//   - /debug/connection   full manager counters
//   - /debug/connect      POST, starts a connection attempt
//   - /debug/disconnect   POST, tears the connection down
//   - /metrics            Prometheus text exposition
//
// Key metrics:
//   - chatlink_connection_state and reconnect attempts
//   - events emitted, frames received, parse errors
//   - history writer inserts, errors and drops
//   - store contact, message and unread counts
package metrics
