package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	switch c.Server.Driver {
	case "gorilla", "coder":
	default:
		return fmt.Errorf("server.driver must be gorilla or coder, got %q", c.Server.Driver)
	}
	if c.Server.UseRealServer {
		if err := validateURL("server.url", c.Server.URL, "ws", "wss"); err != nil {
			return err
		}
	}
	if c.Server.RestURL != "" {
		if err := validateURL("server.rest_url", c.Server.RestURL, "http", "https"); err != nil {
			return err
		}
	}
	if c.Server.MaxRetries < 0 {
		return errors.New("server.max_retries must be >= 0")
	}
	if c.Server.SyncInterval < 0 {
		return errors.New("server.sync_interval must be >= 0")
	}
	if c.Server.SyncInterval > 0 && c.Server.RestURL == "" {
		return errors.New("server.sync_interval requires server.rest_url")
	}

	if c.Connection.MaxReconnectAttempts < 0 {
		return errors.New("connection.max_reconnect_attempts must be >= 0")
	}
	if c.Connection.ReconnectBaseDelay <= 0 {
		return errors.New("connection.reconnect_base_delay must be > 0")
	}
	if c.Connection.ReconnectMaxDelay < c.Connection.ReconnectBaseDelay {
		return fmt.Errorf("connection.reconnect_max_delay (%s) cannot be less than reconnect_base_delay (%s)",
			c.Connection.ReconnectMaxDelay, c.Connection.ReconnectBaseDelay)
	}
	if c.Connection.HeartbeatInterval <= 0 {
		return errors.New("connection.heartbeat_interval must be > 0")
	}
	if c.Connection.PingTimeout < c.Connection.HeartbeatInterval {
		return fmt.Errorf("connection.ping_timeout (%s) cannot be less than heartbeat_interval (%s)",
			c.Connection.PingTimeout, c.Connection.HeartbeatInterval)
	}
	if c.Connection.WriteQueueSize < 1 {
		return errors.New("connection.write_queue_size must be >= 1")
	}

	if err := validateRate("simulation.handshake_failure_rate", c.Simulation.HandshakeFailureRate); err != nil {
		return err
	}
	if err := validateRate("simulation.drop_rate", c.Simulation.DropRate); err != nil {
		return err
	}

	if c.Database.Enabled() {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	if c.Writer.BatchSize < 1 {
		return errors.New("writer.batch_size must be >= 1")
	}
	if c.Writer.BufferSize < 1 {
		return errors.New("writer.buffer_size must be >= 1")
	}

	if c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be at most 65535, got %d", c.HTTP.Port)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %v URL, got %q", field, schemes, raw)
}

func validateRate(field string, rate *float64) error {
	if rate == nil {
		return nil
	}
	if *rate < 0 || *rate > 1 {
		return fmt.Errorf("%s must be between 0 and 1, got %v", field, *rate)
	}
	return nil
}
