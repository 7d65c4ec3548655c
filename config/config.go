// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Health  HealthConfig  `yaml:"health"`
	Sync    SyncConfig    `yaml:"sync"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StorageConfig selects where documents and the parameter repository
// live. Driver "memory" keeps everything in process, "sqlite" uses an
// embedded database, "dir" uses a directory of JSON files.
type StorageConfig struct {
	Driver   string `yaml:"driver"` // "memory", "sqlite" or "dir"
	DSN      string `yaml:"dsn"`    // sqlite database path
	Dir      string `yaml:"dir"`    // document directory for the dir driver
	RepoFile string `yaml:"repo_file"`
	Branch   string `yaml:"branch"` // default storage context
}

// HealthConfig tunes the health checker's fetch behavior.
type HealthConfig struct {
	Workers      int           `yaml:"workers"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// SyncConfig tunes batch reconciliation.
type SyncConfig struct {
	// PreserveValues keeps document-local values for fields whose type
	// did not change instead of overwriting them with canonical ones.
	PreserveValues bool `yaml:"preserve_values"`
}

// AuthConfig guards mutating endpoints. AdminTokenHash is a bcrypt
// hash of the admin token; an empty hash disables auth.
type AuthConfig struct {
	AdminTokenHash string `yaml:"admin_token_hash"`
	Header         string `yaml:"header"` // default: X-Admin-Token
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // default: /metrics
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment
// variables, for deployments without a config file.
//
// Environment variables:
//
//	SCHEMASYNC_SERVER_HOST      - Server host (default: 0.0.0.0)
//	SCHEMASYNC_SERVER_PORT      - Server port (default: 8080)
//	SCHEMASYNC_STORAGE_DRIVER   - Storage driver: memory, sqlite, dir (default: sqlite)
//	SCHEMASYNC_STORAGE_DSN      - sqlite database path (default: schemasync.db)
//	SCHEMASYNC_STORAGE_DIR      - document directory for the dir driver
//	SCHEMASYNC_STORAGE_BRANCH   - default storage branch
//	SCHEMASYNC_HEALTH_WORKERS   - parallel document fetches (default: 10)
//	SCHEMASYNC_AUTH_TOKEN_HASH  - bcrypt hash of the admin token
//	SCHEMASYNC_LOG_LEVEL        - Log level: debug, info, warn, error (default: info)
//	SCHEMASYNC_LOG_FORMAT       - Log format: json or console (default: json)
//	SCHEMASYNC_METRICS_ENABLED  - Enable /metrics endpoint (default: true)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	cfg.Metrics.Enabled = true

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment
// variables when the file is absent.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies SCHEMASYNC_* environment variables to the
// config. Environment variables always override file-based values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCHEMASYNC_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SCHEMASYNC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SCHEMASYNC_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("SCHEMASYNC_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("SCHEMASYNC_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("SCHEMASYNC_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("SCHEMASYNC_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("SCHEMASYNC_STORAGE_BRANCH"); v != "" {
		cfg.Storage.Branch = v
	}

	if v := os.Getenv("SCHEMASYNC_HEALTH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Health.Workers = n
		}
	}
	if v := os.Getenv("SCHEMASYNC_HEALTH_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Health.FetchTimeout = d
		}
	}

	if v := os.Getenv("SCHEMASYNC_SYNC_PRESERVE_VALUES"); v != "" {
		cfg.Sync.PreserveValues = parseBool(v)
	}

	if v := os.Getenv("SCHEMASYNC_AUTH_TOKEN_HASH"); v != "" {
		cfg.Auth.AdminTokenHash = v
	}

	if v := os.Getenv("SCHEMASYNC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SCHEMASYNC_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("SCHEMASYNC_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("SCHEMASYNC_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "schemasync.db"
	}
	if cfg.Storage.RepoFile == "" {
		cfg.Storage.RepoFile = "repo.json"
	}

	if cfg.Health.Workers == 0 {
		cfg.Health.Workers = 10
	}
	if cfg.Health.FetchTimeout == 0 {
		cfg.Health.FetchTimeout = 15 * time.Second
	}

	if cfg.Auth.Header == "" {
		cfg.Auth.Header = "X-Admin-Token"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	validDrivers := map[string]bool{"memory": true, "sqlite": true, "dir": true}
	if !validDrivers[cfg.Storage.Driver] {
		return fmt.Errorf("storage.driver must be 'memory', 'sqlite' or 'dir', got %q", cfg.Storage.Driver)
	}
	if cfg.Storage.Driver == "dir" && cfg.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required when storage.driver is 'dir'")
	}

	if cfg.Health.Workers < 0 {
		return fmt.Errorf("health.workers must not be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}
	return nil
}
