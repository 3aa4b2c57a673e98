package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_CreatesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "config file should be written on first run")

	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, "https://carrier-info-backend.onrender.com", cfg.Source.URL)
	assert.Equal(t, 5, cfg.Dashboard.DefaultPageSize)
	assert.Equal(t, "OUT-OF-SERVICE", cfg.Dashboard.StatusSentinel)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Storage.DataDirectory)
	assert.Equal(t, filepath.Join(dir, "data", "overrides.db"), cfg.Storage.OverridesDatabase)
	assert.Equal(t, filepath.Join(dir, "pivot_presets.yaml"), cfg.Dashboard.PivotPresetsFile)
	assert.Equal(t, 30*time.Second, cfg.SourceTimeout())
	assert.Equal(t, time.Minute, cfg.CacheTTL())
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	content := `<?xml version="1.0" encoding="UTF-8"?>
<CarrierDashboard>
  <Server>
    <Port>9000</Port>
  </Server>
  <Dashboard>
    <TimeZone>America/Chicago</TimeZone>
    <DefaultPageSize>20</DefaultPageSize>
  </Dashboard>
</CarrierDashboard>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 20, cfg.Dashboard.DefaultPageSize)
	assert.Equal(t, "OUT-OF-SERVICE", cfg.Dashboard.StatusSentinel)
	assert.Equal(t, "carriers", cfg.Messaging.SubjectPrefix)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", loc.String())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "elsewhere")
	t.Setenv("PORT", "7070")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("CARRIER_SOURCE_URL", "http://localhost:9999/carriers")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(dir, FileName))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, dataDir, cfg.Storage.DataDirectory)
	assert.Equal(t, filepath.Join(dataDir, "cache"), cfg.Storage.CacheDirectory)
	assert.Equal(t, filepath.Join(dataDir, "overrides.db"), cfg.Storage.OverridesDatabase)
	assert.Equal(t, "http://localhost:9999/carriers", cfg.Source.URL)
	assert.Equal(t, "nats://localhost:4222", cfg.Messaging.NatsURL)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
	assert.Equal(t, "0.0.0.0:7070", cfg.GetServerAddr())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad xml":       `<CarrierDashboard><Server>`,
		"bad port":      `<CarrierDashboard><Server><Port>70000</Port></Server></CarrierDashboard>`,
		"bad time zone": `<CarrierDashboard><Dashboard><TimeZone>Mars/Olympus</TimeZone></Dashboard></CarrierDashboard>`,
		"negative ttl":  `<CarrierDashboard><Source><CacheTTLSeconds>-1</CacheTTLSeconds></Source></CarrierDashboard>`,
		"zero cleanup":  `<CarrierDashboard><Dashboard><CleanupIntervalMinutes>0</CleanupIntervalMinutes></Dashboard></CarrierDashboard>`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_BadPortEnv(t *testing.T) {
	t.Setenv("PORT", "eighty")
	_, err := LoadConfig(filepath.Join(t.TempDir(), FileName))
	assert.Error(t, err)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.NoError(t, cfg.EnsureDirectories())

	for _, d := range []string{cfg.Storage.DataDirectory, cfg.Storage.CacheDirectory} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
