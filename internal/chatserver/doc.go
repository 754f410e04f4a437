// Package chatserver is a small reference backend for the real transport.
//
// Each socket client gets its own read and write goroutines. For every
// message a client sends, the server answers with message_status delivered,
// then read, then a reply message from the same contact. The REST endpoints
// serve the seed contacts and the accumulated history.
package chatserver
