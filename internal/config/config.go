// Package config provides configuration loading for the engarde CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/canonica-labs/engarde/internal/errors"
)

// Config holds the application configuration.
type Config struct {
	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`

	// Audit store configuration
	Audit AuditConfig `mapstructure:"audit"`

	// Metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Retry policy for source loads
	Retry RetryConfig `mapstructure:"retry"`

	// BigQuery source defaults
	BigQuery BigQueryConfig `mapstructure:"bigquery"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuditConfig holds the run audit store configuration.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
}

// MetricsConfig holds metrics export configuration.
type MetricsConfig struct {
	// Textfile is the node_exporter textfile path. Empty disables export.
	Textfile string `mapstructure:"textfile"`
}

// RetryConfig holds retry configuration for transient source failures.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
}

// BigQueryConfig holds BigQuery client configuration.
type BigQueryConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	Location        string `mapstructure:"location"`
}

// Supported audit drivers.
const (
	AuditDriverSQLite   = "sqlite"
	AuditDriverPostgres = "postgres"
)

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Audit: AuditConfig{
			Enabled: false,
			Driver:  AuditDriverSQLite,
			DSN:     defaultAuditDSN(),
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
		},
	}
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".engarde"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// ENGARDE_AUDIT_DSN maps to audit.dsn
	v.SetEnvPrefix("ENGARDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot constrain.
func (c *Config) Validate() error {
	switch c.Audit.Driver {
	case AuditDriverSQLite, AuditDriverPostgres:
	default:
		return errors.NewInvalidConfig("audit.driver", fmt.Sprintf("unsupported driver %q", c.Audit.Driver))
	}
	if c.Audit.Enabled && c.Audit.DSN == "" {
		return errors.NewInvalidConfig("audit.dsn", "required when audit.enabled is true")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.NewInvalidConfig("logging.level", fmt.Sprintf("unsupported level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return errors.NewInvalidConfig("logging.format", fmt.Sprintf("unsupported format %q", c.Logging.Format))
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.NewInvalidConfig("retry.max_attempts", "must be at least 1")
	}
	if c.Retry.InitialDelay < 0 {
		return errors.NewInvalidConfig("retry.initial_delay", "must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.driver", AuditDriverSQLite)
	v.SetDefault("audit.dsn", defaultAuditDSN())
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay", "100ms")
	v.SetDefault("bigquery.credentials_file", "")
	v.SetDefault("bigquery.location", "")
}

func defaultAuditDSN() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "engarde-audit.db"
	}
	return filepath.Join(home, ".engarde", "audit.db")
}
