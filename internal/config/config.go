// Package config handles the configuration directory, the config file and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "roletodo"

	// ConfigFile is the config filename inside the config directory.
	ConfigFile = "config.yaml"

	// StateDir holds the file-backed session records.
	StateDir = "state"

	// StateDB is the sqlite database used when storage is "sqlite".
	StateDB = "state.db"

	// EnvPrefix prefixes environment overrides, e.g. ROLETODO_BASE_URL.
	EnvPrefix = "ROLETODO"
)

// Storage backends for the session record.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// ErrNoBaseURL is returned by RequireBaseURL when no server is configured.
var ErrNoBaseURL = errors.New("base_url not configured")

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `mapstructure:"-" yaml:"-"`

	// Debug enables debug logging.
	Debug bool `mapstructure:"-" yaml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `mapstructure:"-" yaml:"-"`

	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	Storage        string        `mapstructure:"storage" yaml:"storage"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RoleRetries    int           `mapstructure:"role_retries" yaml:"role_retries"`
	RoleRetryDelay time.Duration `mapstructure:"role_retry_delay" yaml:"role_retry_delay"`
	LogLevel       string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat      string        `mapstructure:"log_format" yaml:"log_format"`
}

// Default returns the built-in settings for dir.
func Default(dir string) *Config {
	return &Config{
		Dir:            dir,
		Storage:        StorageFile,
		Timeout:        10 * time.Second,
		RoleRetries:    2,
		RoleRetryDelay: 250 * time.Millisecond,
		LogLevel:       "warn",
		LogFormat:      "text",
	}
}

// Load reads config.yaml from configDir (if present) and applies ROLETODO_*
// environment overrides on top of the defaults.
// If configDir is empty, uses XDG_CONFIG_HOME/roletodo or $HOME/.config/roletodo.
func Load(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := Default(dir)

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("base_url", cfg.BaseURL)
	v.SetDefault("storage", cfg.Storage)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("role_retries", cfg.RoleRetries)
	v.SetDefault("role_retry_delay", cfg.RoleRetryDelay)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)

	path := cfg.ConfigPath()
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	switch c.Storage {
	case StorageFile, StorageSQLite:
	default:
		return fmt.Errorf("invalid storage %q (want %s or %s)", c.Storage, StorageFile, StorageSQLite)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.RoleRetries < 0 {
		return fmt.Errorf("role_retries must not be negative, got %d", c.RoleRetries)
	}
	if c.RoleRetryDelay < 0 {
		return fmt.Errorf("role_retry_delay must not be negative, got %s", c.RoleRetryDelay)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q (want text or json)", c.LogFormat)
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigPath returns the path to config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// StatePath returns the directory of the file storage backend.
func (c *Config) StatePath() string {
	return filepath.Join(c.Dir, StateDir)
}

// DBPath returns the path of the sqlite storage backend.
func (c *Config) DBPath() string {
	return filepath.Join(c.Dir, StateDB)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// RequireBaseURL returns the configured server URL or ErrNoBaseURL.
func (c *Config) RequireBaseURL() (string, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return "", ErrNoBaseURL
	}
	return c.BaseURL, nil
}

// EffectiveLogLevel is "debug" under --debug, the configured level otherwise.
func (c *Config) EffectiveLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}

// YAML renders the file-backed settings.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
