// Package buffer provides the growable FIFO queue used between chatlink
// components: the connection manager's event outbox and the history
// writer's input.
package buffer
