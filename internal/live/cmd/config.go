package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pitchside/matchday/internal/live"
)

// Config is the client slice of config.yaml: polling cadence and failure
// backoff for the synchronizer. Unset fields fall back to the role defaults.
type Config struct {
	Live struct {
		InputPollInterval time.Duration `yaml:"input_poll_interval"`
		WatchPollInterval time.Duration `yaml:"watch_poll_interval"`
		Backoff           struct {
			Initial    time.Duration `yaml:"initial"`
			Multiplier float64       `yaml:"multiplier"`
			Cap        time.Duration `yaml:"cap"`
		} `yaml:"backoff"`
	} `yaml:"live"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// synchronizerConfig builds the session polling config for a role.
func (c *Config) synchronizerConfig(role live.Role) live.SynchronizerConfig {
	cfg := live.SynchronizerConfig{
		Role:    role,
		Backoff: live.DefaultBackoffPolicy(),
	}

	switch role {
	case live.RoleInput:
		cfg.Interval = c.Live.InputPollInterval
	case live.RoleWatch:
		cfg.Interval = c.Live.WatchPollInterval
	}
	if c.Live.Backoff.Initial > 0 {
		cfg.Backoff = live.BackoffPolicy{
			Initial:    c.Live.Backoff.Initial,
			Multiplier: c.Live.Backoff.Multiplier,
			Cap:        c.Live.Backoff.Cap,
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
