// Package config provides configuration management for the bundled tools.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

const (
	// defaultTimeout is used when broker.timeout is unset
	defaultTimeout = 10 * time.Second
	// defaultDashboardPort is used when dashboard.port is unset
	defaultDashboardPort = 8080
)

// Config represents the complete tool configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Broker      BrokerConfig      `yaml:"broker"`
	Underlying  string            `yaml:"underlying"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// BrokerConfig defines broker API settings. The access token is expected
// to arrive via environment expansion, e.g. `access_token:
// ${SCHWAB_ACCESS_TOKEN}`.
type BrokerConfig struct {
	AccessToken string `yaml:"access_token"`
	BaseURL     string `yaml:"base_url"` // empty selects production
	Timeout     string `yaml:"timeout"`  // Go duration, e.g. "10s"
}

// DashboardConfig defines the JSON dashboard settings.
type DashboardConfig struct {
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks that all configuration values are valid and consistent.
func (c *Config) Validate() error {
	switch c.Environment.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of debug, info, warn, error")
	}

	if c.Broker.AccessToken == "" {
		return fmt.Errorf("broker.access_token is required")
	}
	if c.Broker.Timeout != "" {
		if _, err := time.ParseDuration(c.Broker.Timeout); err != nil {
			return fmt.Errorf("broker.timeout invalid: %w", err)
		}
	}

	if c.Underlying == "" {
		return fmt.Errorf("underlying is required")
	}

	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port must be a valid TCP port")
	}

	return nil
}

// GetTimeout returns the configured broker timeout duration.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Broker.Timeout)
	if err != nil || d <= 0 {
		return defaultTimeout
	}
	return d
}

// GetDashboardPort returns the configured dashboard port, falling back to
// the default when unset.
func (c *Config) GetDashboardPort() int {
	if c.Dashboard.Port == 0 {
		return defaultDashboardPort
	}
	return c.Dashboard.Port
}
