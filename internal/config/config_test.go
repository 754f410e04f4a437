package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: desk-1
server:
  use_real_server: true
  url: wss://chat.example.com/ws
  driver: coder
connection:
  max_reconnect_attempts: 3
  heartbeat_interval: 15s
simulation:
  handshake_failure_rate: 0
database:
  host: localhost
  port: 5432
  name: chat
  user: chat
  password: secret
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "desk-1" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "desk-1")
	}
	if !cfg.Server.UseRealServer || cfg.Server.URL != "wss://chat.example.com/ws" || cfg.Server.Driver != "coder" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Connection.HeartbeatInterval != 15*time.Second {
		t.Errorf("Connection.HeartbeatInterval = %v, want 15s", cfg.Connection.HeartbeatInterval)
	}
	if cfg.Simulation.HandshakeFailureRate == nil || *cfg.Simulation.HandshakeFailureRate != 0 {
		t.Errorf("explicit zero rate lost: %v", cfg.Simulation.HandshakeFailureRate)
	}
	if cfg.Simulation.DropRate != nil {
		t.Errorf("DropRate = %v, want unset", *cfg.Simulation.DropRate)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
database:
  host: localhost
  name: chat
  user: chat
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Errorf("missing file error = %v", err)
	}

	path := writeTempFile(t, "server: [not, a, map")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config yaml") {
		t.Errorf("bad yaml error = %v", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "instance:\n  id: desk-1\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Server.URL != DefaultServerURL {
		t.Errorf("Server.URL = %q, want default %q", cfg.Server.URL, DefaultServerURL)
	}
	if cfg.Server.Driver != DefaultDriver {
		t.Errorf("Server.Driver = %q, want default %q", cfg.Server.Driver, DefaultDriver)
	}
	if cfg.Connection.MaxReconnectAttempts != DefaultMaxReconnectAttempts {
		t.Errorf("MaxReconnectAttempts = %d, want default %d", cfg.Connection.MaxReconnectAttempts, DefaultMaxReconnectAttempts)
	}
	if cfg.Connection.ReconnectMaxDelay != DefaultReconnectMaxDelay {
		t.Errorf("ReconnectMaxDelay = %v, want default %v", cfg.Connection.ReconnectMaxDelay, DefaultReconnectMaxDelay)
	}
	if *cfg.Simulation.HandshakeFailureRate != DefaultHandshakeFailureRate {
		t.Errorf("HandshakeFailureRate = %v, want default", *cfg.Simulation.HandshakeFailureRate)
	}
	if cfg.Database.Port != 0 {
		t.Errorf("Database.Port = %d, want 0 with no database configured", cfg.Database.Port)
	}
	if cfg.HTTP.Port != DefaultHTTPPort {
		t.Errorf("HTTP.Port = %d, want default %d", cfg.HTTP.Port, DefaultHTTPPort)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want default %q", cfg.Log.Level, DefaultLogLevel)
	}
}

func TestLoadWithDefaults_Database(t *testing.T) {
	path := writeTempFile(t, "database:\n  host: db\n  name: chat\n  user: u\n  password: p\n")

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	if cfg.Database.Port != DefaultDBPort || cfg.Database.MaxConns != DefaultMaxConns || cfg.Database.SSLMode != DefaultDBSSLMode {
		t.Errorf("Database = %+v", cfg.Database)
	}
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() = %v", err)
	}
	if cfg.Server.UseRealServer || cfg.Database.Enabled() {
		t.Errorf("Default() = %+v, want simulated with no database", cfg)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Config{}
		cfg.applyDefaults()
		return cfg
	}
	rate := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "missing instance id",
			mutate:  func(c *Config) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Server.Driver = "nhooyr" },
			wantErr: `server.driver must be gorilla or coder, got "nhooyr"`,
		},
		{
			name: "real server needs websocket url",
			mutate: func(c *Config) {
				c.Server.UseRealServer = true
				c.Server.URL = "http://chat.example.com"
			},
			wantErr: `server.url must be a [ws wss] URL, got "http://chat.example.com"`,
		},
		{
			name:    "bad rest url",
			mutate:  func(c *Config) { c.Server.RestURL = "ftp://x" },
			wantErr: `server.rest_url must be a [http https] URL, got "ftp://x"`,
		},
		{
			name:    "sync without rest url",
			mutate:  func(c *Config) { c.Server.SyncInterval = time.Minute },
			wantErr: "server.sync_interval requires server.rest_url",
		},
		{
			name:    "max delay below base",
			mutate:  func(c *Config) { c.Connection.ReconnectMaxDelay = 500 * time.Millisecond },
			wantErr: "connection.reconnect_max_delay (500ms) cannot be less than reconnect_base_delay (1s)",
		},
		{
			name:    "ping timeout below heartbeat",
			mutate:  func(c *Config) { c.Connection.PingTimeout = 10 * time.Second },
			wantErr: "connection.ping_timeout (10s) cannot be less than heartbeat_interval (30s)",
		},
		{
			name:    "rate out of range",
			mutate:  func(c *Config) { c.Simulation.DropRate = rate(1.5) },
			wantErr: "simulation.drop_rate must be between 0 and 1, got 1.5",
		},
		{
			name:    "missing database password",
			mutate:  func(c *Config) { c.Database = DBConfig{Host: "db", Name: "chat", User: "u", MaxConns: 1} },
			wantErr: "database.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Database = DBConfig{Host: "db", Name: "chat", User: "u", Password: "p", MaxConns: 5, MinConns: 10}
			},
			wantErr: "database.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "log.level: slog: level string \"loud\": unknown name",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.HTTP.Port = 70000 },
			wantErr: "http.port must be at most 65535, got 70000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestManagerConfig(t *testing.T) {
	path := writeTempFile(t, `
server:
  use_real_server: true
  url: ws://localhost:9000/ws
connection:
  max_reconnect_attempts: 2
  reconnect_base_delay: 500ms
  write_queue_size: 8
simulation:
  drop_rate: 0
`)
	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	mc := cfg.ManagerConfig()
	if !mc.Endpoint.UseRealServer || mc.Endpoint.ServerURL != "ws://localhost:9000/ws" {
		t.Errorf("Endpoint = %+v", mc.Endpoint)
	}
	if mc.MaxReconnectAttempts != 2 || mc.ReconnectBaseDelay != 500*time.Millisecond {
		t.Errorf("retry policy = %d, %v", mc.MaxReconnectAttempts, mc.ReconnectBaseDelay)
	}
	if mc.Simulation.DropRate != 0 || mc.Simulation.HandshakeFailureRate != DefaultHandshakeFailureRate {
		t.Errorf("Simulation = %+v", mc.Simulation)
	}
	if mc.Simulation.ReplyRate == 0 {
		t.Error("stock simulation fields not kept")
	}

	tc := cfg.TransportConfig()
	if tc.WriteQueueSize != 8 || tc.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("TransportConfig = %+v", tc)
	}
}

func TestEndpointChange(t *testing.T) {
	old := &Config{Server: ServerConfig{URL: "ws://a/ws"}}

	same := &Config{Server: ServerConfig{URL: "ws://a/ws"}}
	if _, changed := same.EndpointChange(old); changed {
		t.Error("identical server reported as changed")
	}

	next := &Config{Server: ServerConfig{URL: "ws://b/ws", UseRealServer: true}}
	p, changed := next.EndpointChange(old)
	if !changed {
		t.Fatal("change not detected")
	}
	if p.ServerURL == nil || *p.ServerURL != "ws://b/ws" || p.UseRealServer == nil || !*p.UseRealServer {
		t.Errorf("patch = %+v", p)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
