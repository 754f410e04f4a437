package config

import "github.com/rickgao/chatlink/internal/connection"

// Endpoint returns the connection target.
func (c *Config) Endpoint() connection.Endpoint {
	return connection.Endpoint{
		UseRealServer: c.Server.UseRealServer,
		ServerURL:     c.Server.URL,
	}
}

// ManagerConfig builds the connection manager settings. Simulation fields
// not exposed in the file keep their stock values.
func (c *Config) ManagerConfig() connection.Config {
	cfg := connection.DefaultConfig()
	cfg.Endpoint = c.Endpoint()

	cfg.MaxReconnectAttempts = c.Connection.MaxReconnectAttempts
	cfg.ReconnectBaseDelay = c.Connection.ReconnectBaseDelay
	cfg.ReconnectMaxDelay = c.Connection.ReconnectMaxDelay
	cfg.HeartbeatInterval = c.Connection.HeartbeatInterval
	cfg.PingTimeout = c.Connection.PingTimeout
	cfg.HandshakeTimeout = c.Connection.HandshakeTimeout
	cfg.ReconfigureDelay = c.Connection.ReconfigureDelay

	cfg.Simulation.TrafficInterval = c.Simulation.TrafficInterval
	if c.Simulation.HandshakeFailureRate != nil {
		cfg.Simulation.HandshakeFailureRate = *c.Simulation.HandshakeFailureRate
	}
	if c.Simulation.DropRate != nil {
		cfg.Simulation.DropRate = *c.Simulation.DropRate
	}
	return cfg
}

// TransportConfig builds the socket driver settings.
func (c *Config) TransportConfig() connection.TransportConfig {
	tc := connection.DefaultTransportConfig()
	tc.HandshakeTimeout = c.Connection.HandshakeTimeout
	tc.WriteTimeout = c.Connection.WriteTimeout
	tc.WriteQueueSize = c.Connection.WriteQueueSize
	return tc
}

// EndpointChange returns the patch that moves from old's endpoint to c's,
// and whether anything changed.
func (c *Config) EndpointChange(old *Config) (connection.EndpointPatch, bool) {
	var p connection.EndpointPatch
	if c.Server.UseRealServer != old.Server.UseRealServer {
		v := c.Server.UseRealServer
		p.UseRealServer = &v
	}
	if c.Server.URL != old.Server.URL {
		v := c.Server.URL
		p.ServerURL = &v
	}
	return p, p.UseRealServer != nil || p.ServerURL != nil
}
