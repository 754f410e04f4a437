package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID           = "chatlink"
	DefaultServerURL            = "ws://localhost:8080/ws"
	DefaultDriver               = "gorilla"
	DefaultRestTimeout          = 10 * time.Second
	DefaultMaxRetries           = 3
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultReconnectMaxDelay    = 30 * time.Second
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultPingTimeout          = 60 * time.Second
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultWriteQueueSize       = 256
	DefaultReconfigureDelay     = 1 * time.Second
	DefaultTrafficInterval      = 5 * time.Second
	DefaultHandshakeFailureRate = 0.1
	DefaultDropRate             = 0.02
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 10
	DefaultMinConns             = 2
	DefaultBatchSize            = 100
	DefaultFlushInterval        = 1 * time.Second
	DefaultBufferSize           = 1000
	DefaultHTTPPort             = 9090
	DefaultMetricsPath          = "/metrics"
	DefaultLogLevel             = "info"
)

func (c *Config) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// Server defaults
	if c.Server.URL == "" {
		c.Server.URL = DefaultServerURL
	}
	if c.Server.Driver == "" {
		c.Server.Driver = DefaultDriver
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = DefaultRestTimeout
	}
	if c.Server.MaxRetries == 0 {
		c.Server.MaxRetries = DefaultMaxRetries
	}

	// Connection defaults
	if c.Connection.MaxReconnectAttempts == 0 {
		c.Connection.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Connection.ReconnectBaseDelay == 0 {
		c.Connection.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Connection.ReconnectMaxDelay == 0 {
		c.Connection.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Connection.HeartbeatInterval == 0 {
		c.Connection.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.WriteQueueSize == 0 {
		c.Connection.WriteQueueSize = DefaultWriteQueueSize
	}
	if c.Connection.ReconfigureDelay == 0 {
		c.Connection.ReconfigureDelay = DefaultReconfigureDelay
	}

	// Simulation defaults
	if c.Simulation.TrafficInterval == 0 {
		c.Simulation.TrafficInterval = DefaultTrafficInterval
	}
	if c.Simulation.HandshakeFailureRate == nil {
		rate := DefaultHandshakeFailureRate
		c.Simulation.HandshakeFailureRate = &rate
	}
	if c.Simulation.DropRate == nil {
		rate := DefaultDropRate
		c.Simulation.DropRate = &rate
	}

	// Database defaults, only when a database is configured
	if c.Database.Enabled() {
		if c.Database.Port == 0 {
			c.Database.Port = DefaultDBPort
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = DefaultDBSSLMode
		}
		if c.Database.MaxConns == 0 {
			c.Database.MaxConns = DefaultMaxConns
		}
		if c.Database.MinConns == 0 {
			c.Database.MinConns = DefaultMinConns
		}
	}

	// Writer defaults
	if c.Writer.BatchSize == 0 {
		c.Writer.BatchSize = DefaultBatchSize
	}
	if c.Writer.FlushInterval == 0 {
		c.Writer.FlushInterval = DefaultFlushInterval
	}
	if c.Writer.BufferSize == 0 {
		c.Writer.BufferSize = DefaultBufferSize
	}

	// HTTP defaults
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
	if c.HTTP.MetricsPath == "" {
		c.HTTP.MetricsPath = DefaultMetricsPath
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}
