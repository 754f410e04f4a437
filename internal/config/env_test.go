package config

import (
	"strings"
	"testing"
)

func TestApplyEnv(t *testing.T) {
	t.Setenv("CHATLINK_SERVER_URL", "wss://override.example.com/ws")
	t.Setenv("CHATLINK_USE_REAL_SERVER", "true")
	t.Setenv("CHATLINK_LOG_LEVEL", "debug")
	t.Setenv("CHATLINK_DB_PASSWORD", "from-env")

	path := writeTempFile(t, `
server:
  url: ws://file/ws
  driver: coder
log:
  level: warn
`)
	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}

	if cfg.Server.URL != "wss://override.example.com/ws" || !cfg.Server.UseRealServer {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.Driver != "coder" {
		t.Errorf("Server.Driver = %q, want file value kept", cfg.Server.Driver)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Database.Password != "from-env" {
		t.Errorf("Database.Password = %q", cfg.Database.Password)
	}
}

func TestApplyEnv_Error(t *testing.T) {
	t.Setenv("CHATLINK_USE_REAL_SERVER", "maybe")

	var cfg Config
	err := cfg.ApplyEnv()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
