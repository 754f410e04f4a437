// Package poller implements the history sync component.
//
// The poller:
//   - Fetches each contact's history from the REST API on an interval
//   - Runs an extra cycle on demand, e.g. after a reconnect, to recover
//     messages missed while the socket was down
//   - Uses concurrent requests with bounded concurrency
package poller
