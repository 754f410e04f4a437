// Package router owns the chat wire format.
//
// Inbound frames are either a bare message object
//
//	{"id": "...", "contactId": "...", "content": "...", "timestamp": "ISO-8601", "isOwn": false, "status": "delivered"}
//
// or an envelope {"type": ..., "data": {...}} for message, message_status,
// typing_start, typing_stop and presence_update. Outbound frames are always
// envelopes. Malformed frames are counted and reported, never fatal.
package router
