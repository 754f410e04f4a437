package connection

import (
	"context"
	"time"
)

// Dialer opens real socket connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is an open socket. Write and Ping must not block on the network;
// Close must not wait for the connection's goroutines.
type Conn interface {
	// Start begins delivering inbound frames and close notifications to h.
	Start(h Handler)

	// Write queues a text frame.
	Write(data []byte) error

	// Ping sends a protocol-level liveness probe.
	Ping() error

	// LastActivity returns when a frame or pong was last received.
	LastActivity() time.Time

	// Close tears the connection down.
	Close() error
}

// Handler receives callbacks from a Conn's goroutines.
type Handler interface {
	HandleFrame(data []byte, receivedAt time.Time)

	// HandleClose is called at most once, when the connection fails or
	// the peer closes it. It is not called after a local Close.
	HandleClose(err error)
}

// TransportConfig holds settings shared by the socket drivers.
type TransportConfig struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	WriteQueueSize   int
	ReadLimit        int64
}

// DefaultTransportConfig returns sensible defaults.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		WriteQueueSize:   256,
		ReadLimit:        1 << 20,
	}
}
