package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// QueueConfig names one consumer queue. The engine iterates the configured
// list uniformly; nothing else is special about "default" except that the
// scheduler tick runs there.
type QueueConfig struct {
	Name string `yaml:"name"`
}

// Config holds all configuration for the jobq server and consumers.
// It is immutable after creation via Load().
type Config struct {
	// EnvName tags jobs by deployment environment.
	EnvName string `yaml:"env_name"`

	// ListenAddr is the HTTP listen address of the embedding server.
	ListenAddr string `yaml:"listen_addr"`

	// BaseURL is how consumer processes reach the server for
	// fire-and-forget snapshot pushes.
	BaseURL string `yaml:"base_url"`

	// DataDir roots the on-disk layout (databases, logs, pid files).
	DataDir string `yaml:"data_dir"`

	// Queues is the list of consumer queues. The first entry hosts the
	// scheduler tick.
	Queues []QueueConfig `yaml:"queues"`

	// StartConsumersOnBoot starts any not-running consumers when the
	// server boots.
	StartConsumersOnBoot bool `yaml:"start_consumers_on_boot"`

	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// Path is where this configuration was loaded from. Spawned consumer
	// processes are pointed back at the same file.
	Path string `yaml:"-"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		EnvName:    "dev",
		ListenAddr: ":8080",
		BaseURL:    "http://127.0.0.1:8080",
		DataDir:    "data",
		Queues: []QueueConfig{
			{Name: "default"},
			{Name: "reserved"},
		},
		LogLevel: "info",
	}
}

// Load reads configuration from path. A missing file yields defaults;
// a present file overrides only the fields it sets.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.EnvName == "" {
		return fmt.Errorf("env_name must not be empty")
	}
	if len(c.Queues) == 0 {
		return fmt.Errorf("at least one queue must be configured")
	}
	seen := make(map[string]bool, len(c.Queues))
	for _, q := range c.Queues {
		if q.Name == "" {
			return fmt.Errorf("queue name must not be empty")
		}
		if seen[q.Name] {
			return fmt.Errorf("duplicate queue name: %q", q.Name)
		}
		seen[q.Name] = true
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	return nil
}

// QueueNames returns the configured queue names in order.
func (c *Config) QueueNames() []string {
	names := make([]string, 0, len(c.Queues))
	for _, q := range c.Queues {
		names = append(names, q.Name)
	}
	return names
}

// HasQueue reports whether name is a configured queue.
func (c *Config) HasQueue(name string) bool {
	for _, q := range c.Queues {
		if q.Name == name {
			return true
		}
	}
	return false
}
