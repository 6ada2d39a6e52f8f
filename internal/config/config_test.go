package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// No config.yaml in the temp dir.
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "retrieval.db", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.InDelta(t, 0.0, cfg.Store.FailureRate, 0.0001)
	assert.Equal(t, "current_user", cfg.Engine.User)
	assert.Equal(t, 8, cfg.Engine.BulkConcurrency)
	assert.Equal(t, 3, cfg.View.SLADays)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 200, cfg.Retry.InitialBackoffMs)
	assert.Equal(t, 5, cfg.Address.MinLength)
	assert.InDelta(t, 5.0, cfg.Address.RatePerSec, 0.0001)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: memory
  failure_rate: 0.1
log:
  level: debug
  format: console
engine:
  user: agent_smith
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.InDelta(t, 0.1, cfg.Store.FailureRate, 0.0001)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "agent_smith", cfg.Engine.User)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 8, cfg.Engine.BulkConcurrency)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("RETRIEVAL_STORE_DRIVER", "postgres")
	t.Setenv("RETRIEVAL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("RETRIEVAL_SERVER_PORT", "3000")
	t.Setenv("RETRIEVAL_VIEW_SLA_DAYS", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.View.SLADays)
}

func TestLoadBadFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "retrieval.db"
	cfg.Engine.BulkConcurrency = 8
	cfg.View.SLADays = 3
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mode string
		mut  func(*Config)
		msg  string
	}{
		{"cli ok", "cli", func(*Config) {}, ""},
		{"serve ok", "serve", func(*Config) {}, ""},
		{"memory needs no url", "cli", func(c *Config) { c.Store.Driver = "memory"; c.Store.DatabaseURL = "" }, ""},
		{"unknown driver", "cli", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver must be memory, sqlite or postgres"},
		{"postgres needs url", "cli", func(c *Config) { c.Store.Driver = "postgres"; c.Store.DatabaseURL = "" }, "store.database_url is required for postgres"},
		{"failure rate", "cli", func(c *Config) { c.Store.FailureRate = 1.5 }, "store.failure_rate must be between 0 and 1"},
		{"concurrency low", "cli", func(c *Config) { c.Engine.BulkConcurrency = 0 }, "engine.bulk_concurrency must be between 1 and 64"},
		{"concurrency high", "cli", func(c *Config) { c.Engine.BulkConcurrency = 65 }, "engine.bulk_concurrency"},
		{"sla", "cli", func(c *Config) { c.View.SLADays = -1 }, "view.sla_days"},
		{"port ignored for cli", "cli", func(c *Config) { c.Server.Port = 0 }, ""},
		{"port", "serve", func(c *Config) { c.Server.Port = 0 }, "server.port must be > 0"},
		{"unknown mode", "batch", func(*Config) {}, "unknown mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mut(cfg)
			err := cfg.Validate(tt.mode)
			if tt.msg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestValidateCollectsAll(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.FailureRate = -1
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.failure_rate")
	assert.Contains(t, err.Error(), "server.port")
}

func TestLoadMonitoringDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("RETRIEVAL_MONITORING_WEBHOOK_URL", "https://hooks.example.com/sla")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Monitor.Enabled)
	assert.Equal(t, 300, cfg.Monitor.CheckIntervalSecs)
	assert.Equal(t, 5, cfg.Monitor.OverdueThreshold)
	assert.Equal(t, 30, cfg.Monitor.CriticalDays)
	assert.Equal(t, "https://hooks.example.com/sla", cfg.Monitor.WebhookURL)
}
