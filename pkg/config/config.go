package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/zen-systems/routecheck/pkg/schema"
)

// Remote describes how to reach the routing service. Endpoint selects the
// HTTP transport, Command a child process; with neither set the simulated
// backend is used.
type Remote struct {
	Endpoint       string   `yaml:"endpoint,omitempty"`
	Token          string   `yaml:"token,omitempty"`
	Command        string   `yaml:"command,omitempty"`
	Args           []string `yaml:"args,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
}

// Config holds one oracle run's configuration.
type Config struct {
	Expectations []Expectation `yaml:"expectations"`
	Telemetry    bool          `yaml:"telemetry"`
	Vote         bool          `yaml:"vote"`
	Strategy     string        `yaml:"strategy"`
	Remote       Remote        `yaml:"remote,omitempty"`
}

// Default returns the built-in configuration: all fixtures, both optional
// stages on, simple majority voting, simulated backend.
func Default() *Config {
	return &Config{
		Expectations: DefaultExpectations(),
		Telemetry:    true,
		Vote:         true,
		Strategy:     string(schema.StrategySimpleMajority),
	}
}

// Load reads configuration from a YAML file, layering environment variables
// over file values. An empty path yields the defaults. Keys absent from the
// file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.Remote.Endpoint = getEnvOrDefault("ROUTECHECK_ENDPOINT", cfg.Remote.Endpoint)
	cfg.Remote.Token = getEnvOrDefault("ROUTECHECK_TOKEN", cfg.Remote.Token)
	cfg.Remote.Command = getEnvOrDefault("ROUTECHECK_COMMAND", cfg.Remote.Command)
	cfg.Strategy = getEnvOrDefault("ROUTECHECK_STRATEGY", cfg.Strategy)
	if v := os.Getenv("ROUTECHECK_TIMEOUT_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse ROUTECHECK_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Remote.TimeoutSeconds = seconds
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration errors. An empty expectation list is
// allowed; a run over it simply scores zero.
func (c *Config) Validate() error {
	for i := range c.Expectations {
		if err := c.Expectations[i].Validate(); err != nil {
			return fmt.Errorf("expectations[%d]: %w", i, err)
		}
	}
	if c.Strategy != "" {
		if _, err := schema.ParseStrategy(c.Strategy); err != nil {
			return err
		}
	}
	if c.Remote.TimeoutSeconds < 0 {
		return fmt.Errorf("remote timeout_seconds negative")
	}
	if c.Remote.Endpoint != "" && c.Remote.Command != "" {
		return fmt.Errorf("remote endpoint and command are mutually exclusive")
	}
	return nil
}

// VoteStrategy returns the configured strategy, defaulting to simple
// majority when unset.
func (c *Config) VoteStrategy() schema.VoteStrategy {
	if c.Strategy == "" {
		return schema.StrategySimpleMajority
	}
	return schema.VoteStrategy(c.Strategy)
}

// getEnvOrDefault returns the environment variable value if set, otherwise
// the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}
