package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig      `yaml:"store" mapstructure:"store"`
	Engine  EngineConfig     `yaml:"engine" mapstructure:"engine"`
	View    ViewConfig       `yaml:"view" mapstructure:"view"`
	Retry   RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Address AddressConfig    `yaml:"address" mapstructure:"address"`
	Monitor MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server  ServerConfig     `yaml:"server" mapstructure:"server"`
	Log     LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the attempt store backend.
type StoreConfig struct {
	Driver      string  `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string  `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32   `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32   `yaml:"min_conns" mapstructure:"min_conns"`
	FailureRate float64 `yaml:"failure_rate" mapstructure:"failure_rate"`
	LatencyMs   int     `yaml:"latency_ms" mapstructure:"latency_ms"`
}

// EngineConfig configures the mutation engine.
type EngineConfig struct {
	User            string `yaml:"user" mapstructure:"user"`
	BulkConcurrency int    `yaml:"bulk_concurrency" mapstructure:"bulk_concurrency"`
}

// ViewConfig configures list rendering.
type ViewConfig struct {
	SLADays int `yaml:"sla_days" mapstructure:"sla_days"`
}

// RetryConfig configures retries of transient save failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// AddressConfig configures the address normalization client.
type AddressConfig struct {
	MinLength        int     `yaml:"min_length" mapstructure:"min_length"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	LatencyMs        int     `yaml:"latency_ms" mapstructure:"latency_ms"`
	BreakerFailures  int     `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// MonitoringConfig configures the worklist SLA checker.
type MonitoringConfig struct {
	Enabled           bool   `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs int    `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	WebhookURL        string `yaml:"webhook_url" mapstructure:"webhook_url"`
	// OverdueThreshold alerts when at least this many attempts are past the SLA.
	OverdueThreshold int `yaml:"overdue_threshold" mapstructure:"overdue_threshold"`
	// CriticalDays alerts when any attempt has sat in research longer.
	CriticalDays int `yaml:"critical_days" mapstructure:"critical_days"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional) and RETRIEVAL_*
// environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RETRIEVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "retrieval.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("store.failure_rate", 0.0)
	v.SetDefault("store.latency_ms", 0)
	v.SetDefault("engine.user", "current_user")
	v.SetDefault("engine.bulk_concurrency", 8)
	v.SetDefault("view.sla_days", 3)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 200)
	v.SetDefault("retry.max_backoff_ms", 5000)
	v.SetDefault("address.min_length", 5)
	v.SetDefault("address.rate_per_sec", 5.0)
	v.SetDefault("address.latency_ms", 0)
	v.SetDefault("address.breaker_failures", 5)
	v.SetDefault("address.breaker_reset_secs", 30)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.overdue_threshold", 5)
	v.SetDefault("monitoring.critical_days", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Mode is "cli" or
// "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for postgres")
		}
	default:
		errs = append(errs, "store.driver must be memory, sqlite or postgres")
	}
	if c.Store.Driver == "sqlite" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for sqlite")
	}
	if c.Store.FailureRate < 0 || c.Store.FailureRate > 1 {
		errs = append(errs, "store.failure_rate must be between 0 and 1")
	}
	if c.Engine.BulkConcurrency < 1 || c.Engine.BulkConcurrency > 64 {
		errs = append(errs, "engine.bulk_concurrency must be between 1 and 64")
	}
	if c.View.SLADays < 0 {
		errs = append(errs, "view.sla_days must be >= 0")
	}

	switch mode {
	case "cli":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
