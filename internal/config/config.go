package config

import "time"

// Config is the root configuration for a chatlink client.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Server     ServerConfig     `yaml:"server"`
	Connection ConnectionConfig `yaml:"connection"`
	Simulation SimulationConfig `yaml:"simulation"`
	Database   DBConfig         `yaml:"database"`
	Writer     WriterConfig     `yaml:"writer"`
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
}

// InstanceConfig identifies this client.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig selects the chat backend.
type ServerConfig struct {
	UseRealServer bool          `yaml:"use_real_server"`
	URL           string        `yaml:"url"`      // WebSocket endpoint
	Driver        string        `yaml:"driver"`   // "gorilla" or "coder"
	RestURL       string        `yaml:"rest_url"` // Optional bootstrap API
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	SyncInterval  time.Duration `yaml:"sync_interval"` // History sync over REST; 0 disables
}

// ConnectionConfig holds lifecycle and socket settings.
type ConnectionConfig struct {
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	PingTimeout          time.Duration `yaml:"ping_timeout"`
	HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	WriteQueueSize       int           `yaml:"write_queue_size"`
	ReconfigureDelay     time.Duration `yaml:"reconfigure_delay"`
}

// SimulationConfig tunes the built-in simulated server. Rates are pointers
// so that an explicit 0 is distinguishable from unset.
type SimulationConfig struct {
	TrafficInterval      time.Duration `yaml:"traffic_interval"`
	HandshakeFailureRate *float64      `yaml:"handshake_failure_rate"`
	DropRate             *float64      `yaml:"drop_rate"`
}

// DBConfig holds the optional message history database. History is only
// recorded when Host is set.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Enabled reports whether a database is configured.
func (db DBConfig) Enabled() bool {
	return db.Host != ""
}

// WriterConfig holds history writer settings.
type WriterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// HTTPConfig holds the health, debug and metrics server settings.
// A negative port disables the server.
type HTTPConfig struct {
	Port        int    `yaml:"port"`
	MetricsPath string `yaml:"metrics_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
