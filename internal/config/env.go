package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the variables that override file settings. Unset
// variables leave the file value alone.
type envOverrides struct {
	ServerURL     *string `env:"CHATLINK_SERVER_URL"`
	UseRealServer *bool   `env:"CHATLINK_USE_REAL_SERVER"`
	Driver        *string `env:"CHATLINK_SERVER_DRIVER"`
	RestURL       *string `env:"CHATLINK_REST_URL"`
	LogLevel      *string `env:"CHATLINK_LOG_LEVEL"`
	DBHost        *string `env:"CHATLINK_DB_HOST"`
	DBPassword    *string `env:"CHATLINK_DB_PASSWORD"`
	HTTPPort      *int    `env:"CHATLINK_HTTP_PORT"`
}

// ApplyEnv overrides fields from CHATLINK_* environment variables.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.ServerURL != nil {
		c.Server.URL = *o.ServerURL
	}
	if o.UseRealServer != nil {
		c.Server.UseRealServer = *o.UseRealServer
	}
	if o.Driver != nil {
		c.Server.Driver = *o.Driver
	}
	if o.RestURL != nil {
		c.Server.RestURL = *o.RestURL
	}
	if o.LogLevel != nil {
		c.Log.Level = *o.LogLevel
	}
	if o.DBHost != nil {
		c.Database.Host = *o.DBHost
	}
	if o.DBPassword != nil {
		c.Database.Password = *o.DBPassword
	}
	if o.HTTPPort != nil {
		c.HTTP.Port = *o.HTTPPort
	}
	return nil
}
