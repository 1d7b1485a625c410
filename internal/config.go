package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultServer is the address of a locally running campus backend
const DefaultServer = "http://127.0.0.1:8000"

// Config holds the resolved client settings
type Config struct {
	Server     string        `mapstructure:"server"`
	Storage    string        `mapstructure:"storage"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxPending int           `mapstructure:"max_pending"`
	LogLevel   string        `mapstructure:"log_level"`

	// ConfigFile is the file the settings were read from, empty when none
	ConfigFile string `mapstructure:"-"`
}

// ConfigDir returns ~/.campusmind
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".campusmind"), nil
}

// NewViper returns a viper instance with defaults and the CAMPUSMIND_ env prefix
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("server", DefaultServer)
	v.SetDefault("storage", "")
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("max_pending", 0)
	v.SetDefault("log_level", "warn")

	v.SetEnvPrefix("CAMPUSMIND")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads configFile (or config.yaml in ConfigDir when empty) into a
// Config. A missing default file is not an error; a missing explicit file is.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else if dir, err := ConfigDir(); err == nil {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		LogDebug("No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if cfg.Storage == "" {
		dir, err := ConfigDir()
		if err != nil {
			return nil, &ConfigError{Key: "storage", Err: err}
		}
		cfg.Storage = filepath.Join(dir, "storage.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings for obviously broken values
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil {
		return &ConfigError{Key: "server", Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigError{Key: "server", Err: fmt.Errorf("unsupported scheme %q (want http or https)", u.Scheme)}
	}
	if u.Host == "" {
		return &ConfigError{Key: "server", Err: fmt.Errorf("missing host in %q", c.Server)}
	}
	if c.Timeout < 0 {
		return &ConfigError{Key: "timeout", Err: fmt.Errorf("must not be negative, got %s", c.Timeout)}
	}
	if c.MaxPending < 0 {
		return &ConfigError{Key: "max_pending", Err: fmt.Errorf("must not be negative, got %d", c.MaxPending)}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return &ConfigError{Key: "log_level", Err: err}
	}
	return nil
}
