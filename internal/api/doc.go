// Package api is the REST client for the chat backend.
//
// Endpoints:
//   - GET /api/contacts  -> {"contacts": [...]}
//   - GET /api/messages  -> {"messages": [...]}, optionally ?contactId=
//
// Requests are retried with jittered exponential backoff on 5xx and 429.
package api
