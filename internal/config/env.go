package config

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the environment variables that take precedence over the XML file.
type envOverrides struct {
	Port      int    `env:"PORT"`
	DataDir   string `env:"DATA_DIR"`
	SourceURL string `env:"CARRIER_SOURCE_URL"`
	NatsURL   string `env:"NATS_URL"`
	LogLevel  string `env:"LOG_LEVEL"`
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.Port != 0 {
		c.Server.Port = o.Port
	}
	// DATA_DIR moves the whole data tree unless the file placed a store elsewhere explicitly.
	if o.DataDir != "" {
		defaults := DefaultConfig().Storage
		if c.Storage.CacheDirectory == defaults.CacheDirectory {
			c.Storage.CacheDirectory = filepath.Join(o.DataDir, "cache")
		}
		if c.Storage.OverridesDatabase == defaults.OverridesDatabase {
			c.Storage.OverridesDatabase = filepath.Join(o.DataDir, "overrides.db")
		}
		c.Storage.DataDirectory = o.DataDir
	}
	if o.SourceURL != "" {
		c.Source.URL = o.SourceURL
	}
	if o.NatsURL != "" {
		c.Messaging.NatsURL = o.NatsURL
	}
	if o.LogLevel != "" {
		c.Advanced.LogLevel = o.LogLevel
	}
	return nil
}
