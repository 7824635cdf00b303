// Package component provides loading and parsing of aitool.yaml
// configuration files. An aitool.yaml describes a deployable execution
// component: its identity, engine defaults, worker runtime settings,
// and the descriptor registry it serves from.
package component

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents an aitool.yaml configuration file.
type Config struct {
	// Identity
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description,omitempty"`

	// Engine configuration
	Engine *EngineConfig `yaml:"engine,omitempty"`

	// Worker configuration (for queue-based execution)
	Worker *WorkerConfig `yaml:"worker,omitempty"`

	// Registry configuration (etcd descriptor source)
	Registry *RegistryConfig `yaml:"registry,omitempty"`

	// Descriptors is an optional directory of descriptor documents to
	// load at startup, relative to the config file unless absolute.
	Descriptors string `yaml:"descriptors,omitempty"`

	// Additional metadata
	Author     string `yaml:"author,omitempty"`
	License    string `yaml:"license,omitempty"`
	Repository string `yaml:"repository,omitempty"`
}

// EngineConfig holds execution engine defaults.
type EngineConfig struct {
	// DefaultTimeout is the per-attempt timeout applied when a
	// descriptor declares none.
	// Format: Go duration string (e.g., "30s", "1m")
	// Default: 30s
	DefaultTimeout string `yaml:"default_timeout,omitempty"`
}

// GetDefaultTimeout parses the default timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (e *EngineConfig) GetDefaultTimeout() time.Duration {
	if e == nil || e.DefaultTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(e.DefaultTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// WorkerConfig defines configuration for queue-based worker execution.
type WorkerConfig struct {
	// Concurrency is the number of concurrent worker goroutines.
	// I/O-bound tool sets tolerate higher concurrency (4-8);
	// CPU-bound ones should stay low (1-2).
	// Default: 4
	Concurrency int `yaml:"concurrency,omitempty"`

	// ShutdownTimeout is the time to wait for graceful shutdown.
	// Format: Go duration string (e.g., "30s", "1m")
	// Default: 30s
	ShutdownTimeout string `yaml:"shutdown_timeout,omitempty"`

	// Queue is the Redis list key workers drain.
	// Default: "aitool:invocations"
	Queue string `yaml:"queue,omitempty"`

	// HeartbeatInterval is the interval between health heartbeats.
	// Format: Go duration string (e.g., "10s")
	// Default: 10s
	HeartbeatInterval string `yaml:"heartbeat_interval,omitempty"`

	// RedisURL is the Redis connection string.
	// Default: "redis://localhost:6379"
	RedisURL string `yaml:"redis_url,omitempty"`
}

// GetShutdownTimeout parses the shutdown timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (w *WorkerConfig) GetShutdownTimeout() time.Duration {
	if w == nil || w.ShutdownTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(w.ShutdownTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetHeartbeatInterval parses the heartbeat interval string and returns a duration.
// Returns the default value if not set or invalid.
func (w *WorkerConfig) GetHeartbeatInterval() time.Duration {
	if w == nil || w.HeartbeatInterval == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(w.HeartbeatInterval)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetConcurrency returns the configured concurrency or the default value.
func (w *WorkerConfig) GetConcurrency() int {
	if w == nil || w.Concurrency <= 0 {
		return 4
	}
	return w.Concurrency
}

// GetQueue returns the configured queue name or the default value.
func (w *WorkerConfig) GetQueue() string {
	if w == nil || w.Queue == "" {
		return "aitool:invocations"
	}
	return w.Queue
}

// GetRedisURL returns the configured Redis URL or the default value.
func (w *WorkerConfig) GetRedisURL() string {
	if w == nil || w.RedisURL == "" {
		return "redis://localhost:6379"
	}
	return w.RedisURL
}

// RegistryConfig points a component at an etcd descriptor source.
type RegistryConfig struct {
	// Endpoints is the etcd cluster to connect to.
	Endpoints []string `yaml:"endpoints,omitempty"`

	// Prefix is the key prefix descriptor documents live under.
	// Default: "/aitool/descriptors/"
	Prefix string `yaml:"prefix,omitempty"`
}

// GetPrefix returns the configured prefix or the default value.
func (r *RegistryConfig) GetPrefix() string {
	if r == nil || r.Prefix == "" {
		return "/aitool/descriptors/"
	}
	return r.Prefix
}

// Validate checks required identity fields.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	return nil
}

// Load reads and parses an aitool.yaml file from the given path.
// If the path is a directory, it looks for aitool.yaml or aitool.yml in
// that directory.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	var configPath string
	if info.IsDir() {
		// Try aitool.yaml first, then aitool.yml
		yamlPath := filepath.Join(path, "aitool.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			ymlPath := filepath.Join(path, "aitool.yml")
			if _, err := os.Stat(ymlPath); err == nil {
				configPath = ymlPath
			} else {
				return nil, fmt.Errorf("no aitool.yaml or aitool.yml found in %s", path)
			}
		}
	} else {
		configPath = path
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// LoadFromDir searches for aitool.yaml starting from the given directory
// and walking up to parent directories until found or root is reached.
func LoadFromDir(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		config, err := Load(absDir)
		if err == nil {
			return config, nil
		}

		// Move to parent directory
		parent := filepath.Dir(absDir)
		if parent == absDir {
			// Reached root
			return nil, fmt.Errorf("no aitool.yaml found in %s or parent directories", dir)
		}
		absDir = parent
	}
}

// LoadFromCurrentDir loads aitool.yaml from the current working directory.
func LoadFromCurrentDir() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return LoadFromDir(cwd)
}
