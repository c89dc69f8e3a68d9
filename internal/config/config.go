// Package config provides configuration management for the trade journal.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "trade-journal/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Owner    OwnerConfig    `mapstructure:"owner"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Import   ImportConfig   `mapstructure:"import"`
	UI       UIConfig       `mapstructure:"ui"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// OwnerConfig identifies whose journal the CLI operates on.
type OwnerConfig struct {
	ID string `mapstructure:"id"`
}

// DatabaseConfig holds persistence configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// AuditConfig holds audit trail configuration.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// ImportConfig holds brokerage import configuration.
type ImportConfig struct {
	// Timezone is the IANA zone IBKR local timestamps are read in.
	Timezone string `mapstructure:"timezone"`
	// FingerprintMissingIDs derives a hash identity for executions that
	// arrive without a broker id.
	FingerprintMissingIDs bool `mapstructure:"fingerprint_missing_ids"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trade-journal"
	}
	return filepath.Join(home, ".config", "trade-journal")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is written from the template and then read.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	if err := loadDotEnv(configDir); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{Dir: configDir}
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)
	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs from configDir/.env without overriding
// variables already set in the environment.
func loadDotEnv(configDir string) error {
	path := filepath.Join(configDir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

func loadConfigFile(configDir, name string, target *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateConfig(configDir, name); err != nil {
			return err
		}
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.file", false)
	v.SetDefault("log.max_size", 20)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("audit.enabled", true)
	v.SetDefault("import.timezone", "America/New_York")
	v.SetDefault("import.fingerprint_missing_ids", true)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02 15:04")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JOURNAL_OWNER"); v != "" {
		cfg.Owner.ID = v
	}
	if v := os.Getenv("JOURNAL_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("JOURNAL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// applyDerivedDefaults fills paths that live under the config directory.
func (c *Config) applyDerivedDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(c.Dir, "journal.db")
	}
	if c.Log.FilePath == "" {
		c.Log.FilePath = filepath.Join(c.Dir, "logs", "journal.log")
	}
	if c.Audit.Dir == "" {
		c.Audit.Dir = filepath.Join(c.Dir, "audit")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Owner.ID) == "" {
		return fmt.Errorf("%w: owner.id must be set (or JOURNAL_OWNER)", apperrors.ErrConfigInvalid)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: invalid log level: %s (must be debug, info, warn or error)", apperrors.ErrConfigInvalid, c.Log.Level)
	}

	if _, err := time.LoadLocation(c.Import.Timezone); err != nil {
		return fmt.Errorf("%w: invalid import.timezone %q: %v", apperrors.ErrConfigInvalid, c.Import.Timezone, err)
	}

	return nil
}

// Location returns the zone IBKR timestamps are interpreted in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Import.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
