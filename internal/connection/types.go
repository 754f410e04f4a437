package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected      = errors.New("not connected")
	ErrAlreadyConnecting = errors.New("connection attempt already in progress")
	ErrAborted           = errors.New("connection attempt aborted")
	ErrStaleConnection   = errors.New("connection stale (no activity)")
	ErrSimulatedDrop     = errors.New("simulated connection drop")
	ErrWriteQueueFull    = errors.New("write queue full")
	ErrAlreadyClosed     = errors.New("already closed")
)

// State is the connection lifecycle state.
type State int

const (
	// StateDisconnected means there is no connection and nothing pending.
	StateDisconnected State = iota

	// StateConnecting means a handshake is in flight.
	StateConnecting

	// StateConnected means the transport is up and heartbeats are running.
	StateConnected

	// StateReconnecting means the last attempt failed and a backoff timer is pending.
	StateReconnecting

	// StateGivenUp means automatic reconnection is exhausted.
	StateGivenUp
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateGivenUp:
		return "given_up"
	default:
		return "unknown"
	}
}

// Endpoint selects the transport for a connection attempt.
type Endpoint struct {
	UseRealServer bool
	ServerURL     string
}

// EndpointPatch is a partial Endpoint; nil fields are left unchanged.
type EndpointPatch struct {
	UseRealServer *bool
	ServerURL     *string
}

// apply returns e with p merged in.
func (p EndpointPatch) apply(e Endpoint) Endpoint {
	if p.UseRealServer != nil {
		e.UseRealServer = *p.UseRealServer
	}
	if p.ServerURL != nil {
		e.ServerURL = *p.ServerURL
	}
	return e
}

// Config configures the Manager.
type Config struct {
	Endpoint Endpoint

	MaxReconnectAttempts int           // Failures tolerated before giving up
	ReconnectBaseDelay   time.Duration // Backoff is base * 2^attempt
	ReconnectMaxDelay    time.Duration // Backoff cap
	HeartbeatInterval    time.Duration // Liveness probe period while connected
	PingTimeout          time.Duration // Max silence on a real socket before it is stale
	HandshakeTimeout     time.Duration // Dial deadline for real sockets
	ReconfigureDelay     time.Duration // Pause between teardown and reconnect on Reconfigure

	Simulation SimulationConfig
}

// SimulationConfig tunes the simulated transport. Rates are probabilities in [0,1].
type SimulationConfig struct {
	HandshakeDelay       time.Duration // Minimum handshake latency
	HandshakeJitter      time.Duration // Extra latency, scaled by a random draw
	HandshakeFailureRate float64
	DropRate             float64 // Per heartbeat tick

	TrafficInterval     time.Duration
	IncomingMessageRate float64
	TypingRate          float64
	PresenceRate        float64
	TypingDuration      time.Duration
	TypingJitter        time.Duration

	DeliveredDelay  time.Duration
	DeliveredJitter time.Duration
	ReadDelay       time.Duration
	ReadJitter      time.Duration
	ReplyRate       float64
}

// DefaultConfig returns the stock lifecycle settings with a simulated endpoint.
func DefaultConfig() Config {
	return Config{
		MaxReconnectAttempts: 5,
		ReconnectBaseDelay:   1 * time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		HeartbeatInterval:    30 * time.Second,
		PingTimeout:          60 * time.Second,
		HandshakeTimeout:     10 * time.Second,
		ReconfigureDelay:     1 * time.Second,
		Simulation:           DefaultSimulationConfig(),
	}
}

// DefaultSimulationConfig returns the stock simulated traffic profile.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		HandshakeDelay:       1 * time.Second,
		HandshakeJitter:      2 * time.Second,
		HandshakeFailureRate: 0.1,
		DropRate:             0.02,

		TrafficInterval:     5 * time.Second,
		IncomingMessageRate: 0.05,
		TypingRate:          0.03,
		PresenceRate:        0.04,
		TypingDuration:      2 * time.Second,
		TypingJitter:        3 * time.Second,

		DeliveredDelay:  500 * time.Millisecond,
		DeliveredJitter: 1 * time.Second,
		ReadDelay:       2 * time.Second,
		ReadJitter:      3 * time.Second,
		ReplyRate:       0.7,
	}
}

// Stats contains runtime counters for the Manager.
type Stats struct {
	State          string
	Endpoint       Endpoint
	Attempts       int // Consecutive failures since the last success
	Connects       int64
	Failures       int64
	GiveUps        int64
	MessagesSent   int64
	FramesReceived int64
	ParseErrors    int64
	EventsEmitted  int64
	ListenerPanics int64
	PendingTimers  int
}

// backoffDelay returns min(base * 2^attempt, max).
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
