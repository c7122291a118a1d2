// Package config loads and validates the bridge configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level bridge configuration.
type Config struct {
	Matrix  MatrixConfig  `yaml:"matrix"`
	Twitter TwitterConfig `yaml:"twitter"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// MatrixConfig configures the homeserver connection.
type MatrixConfig struct {
	Homeserver  string `yaml:"homeserver"`
	UserID      string `yaml:"user_id"`
	AccessToken string `yaml:"access_token"`
	Domain      string `yaml:"domain"`
}

// TwitterConfig configures the Twitter API clients.
type TwitterConfig struct {
	ConsumerKey    string        `yaml:"consumer_key"`
	ConsumerSecret string        `yaml:"consumer_secret"`
	UserToken      string        `yaml:"user_token"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RefreshCron    string        `yaml:"refresh_cron"`
}

// StorageConfig configures the binding store.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address to serve /metrics on. Empty disables the endpoint.
	Listen string `yaml:"listen"`
}

// Load reads, expands and validates a configuration file. Environment
// variable references in the file ($VAR or ${VAR}) are expanded before
// parsing, so secrets can stay out of the file itself.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and applies defaults.
func (c *Config) Validate() error {
	if c.Matrix.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	if c.Matrix.UserID == "" {
		return fmt.Errorf("matrix.user_id is required")
	}
	if c.Matrix.AccessToken == "" {
		return fmt.Errorf("matrix.access_token is required")
	}
	if c.Twitter.ConsumerKey == "" {
		return fmt.Errorf("twitter.consumer_key is required")
	}
	if c.Twitter.ConsumerSecret == "" {
		return fmt.Errorf("twitter.consumer_secret is required")
	}
	if c.Twitter.UserToken == "" {
		return fmt.Errorf("twitter.user_token is required")
	}

	if c.Twitter.PollInterval == 0 {
		c.Twitter.PollInterval = 60 * time.Second
	}
	if c.Twitter.RefreshCron == "" {
		c.Twitter.RefreshCron = "@every 1h"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "birdbridge.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	return nil
}
