// Package config provides XML-based configuration management for the dashboard server.
package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileName is the configuration file looked up next to the executable.
const FileName = "CarrierDashboard.exe.config"

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"CarrierDashboard"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Upstream data source
	Source SourceConfig `xml:"Source"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Dashboard view settings
	Dashboard DashboardConfig `xml:"Dashboard"`

	// Event publishing
	Messaging MessagingConfig `xml:"Messaging"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// SourceConfig describes the upstream carrier endpoint
type SourceConfig struct {
	URL             string `xml:"URL"`
	TimeoutSeconds  int    `xml:"TimeoutSeconds"`
	CacheTTLSeconds int    `xml:"CacheTTLSeconds"` // 0 disables the payload cache
}

// StorageConfig contains on-disk state locations
type StorageConfig struct {
	DataDirectory     string `xml:"DataDirectory"`
	CacheDirectory    string `xml:"CacheDirectory"` // empty keeps the payload cache in memory
	OverridesDatabase string `xml:"OverridesDatabase"`
}

// DashboardConfig contains settings of the three views
type DashboardConfig struct {
	StatusSentinel            string `xml:"StatusSentinel"`
	TimeZone                  string `xml:"TimeZone"`
	DefaultPageSize           int    `xml:"DefaultPageSize"`
	PivotPresetsFile          string `xml:"PivotPresetsFile"`
	GridSessionTimeoutMinutes int    `xml:"GridSessionTimeoutMinutes"`
	CleanupIntervalMinutes    int    `xml:"CleanupIntervalMinutes"`
}

// MessagingConfig configures the optional NATS event publisher
type MessagingConfig struct {
	NatsURL       string `xml:"NatsURL"` // empty disables publishing
	SubjectPrefix string `xml:"SubjectPrefix"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	DuckDBThreads        int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit    string `xml:"DuckDBMemoryLimit"`
	EnableMetrics        bool   `xml:"EnableMetrics"`
	TraceStdout          bool   `xml:"TraceStdout"`
	EnableCompression    bool   `xml:"EnableCompression"`
	CompressionLevel     int    `xml:"CompressionLevel"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "1M",
		},
		Source: SourceConfig{
			URL:             "https://carrier-info-backend.onrender.com",
			TimeoutSeconds:  30,
			CacheTTLSeconds: 60,
		},
		Storage: StorageConfig{
			DataDirectory:     "./data",
			CacheDirectory:    "./data/cache",
			OverridesDatabase: "./data/overrides.db",
		},
		Dashboard: DashboardConfig{
			StatusSentinel:            "OUT-OF-SERVICE",
			TimeZone:                  "UTC",
			DefaultPageSize:           5,
			PivotPresetsFile:          "./pivot_presets.yaml",
			GridSessionTimeoutMinutes: 30,
			CleanupIntervalMinutes:    5,
		},
		Messaging: MessagingConfig{
			NatsURL:       "",
			SubjectPrefix: "carriers",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			DuckDBThreads:        2,
			DuckDBMemoryLimit:    "256MB",
			EnableMetrics:        true,
			TraceStdout:          false,
			EnableCompression:    true,
			CompressionLevel:     5,
		},
	}
}

// LoadConfig loads configuration from XML file, creating it with defaults on first run
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		// Elements missing from the file keep their defaults.
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	if err := config.applyEnvironmentOverrides(); err != nil {
		return nil, err
	}

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Carrier Dashboard Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that would otherwise fail later at startup
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Source.URL == "" {
		return errors.New("source URL is required")
	}
	if c.Source.CacheTTLSeconds < 0 {
		return fmt.Errorf("invalid cache TTL %d", c.Source.CacheTTLSeconds)
	}
	if c.Dashboard.CleanupIntervalMinutes <= 0 {
		return fmt.Errorf("invalid cleanup interval %d", c.Dashboard.CleanupIntervalMinutes)
	}
	if c.Dashboard.GridSessionTimeoutMinutes <= 0 {
		return fmt.Errorf("invalid grid session timeout %d", c.Dashboard.GridSessionTimeoutMinutes)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.DataDirectory,
		&c.Storage.CacheDirectory,
		&c.Storage.OverridesDatabase,
		&c.Dashboard.PivotPresetsFile,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// SourceTimeout returns the upstream request timeout
func (c *AppConfig) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long a fetched payload is served from cache
func (c *AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.Source.CacheTTLSeconds) * time.Second
}

// SessionTimeout returns the idle time after which a grid session is dropped
func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Dashboard.GridSessionTimeoutMinutes) * time.Minute
}

// CleanupInterval returns the grid session cleanup period
func (c *AppConfig) CleanupInterval() time.Duration {
	return time.Duration(c.Dashboard.CleanupIntervalMinutes) * time.Minute
}

// Location returns the time zone months are bucketed in
func (c *AppConfig) Location() (*time.Location, error) {
	if c.Dashboard.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Dashboard.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.Dashboard.TimeZone, err)
	}
	return loc, nil
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{c.Storage.DataDirectory}
	if c.Storage.CacheDirectory != "" {
		dirs = append(dirs, c.Storage.CacheDirectory)
	}
	if c.Storage.OverridesDatabase != "" {
		dirs = append(dirs, filepath.Dir(c.Storage.OverridesDatabase))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
