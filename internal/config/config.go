// Package config loads the service configuration from YAML with
// environment-variable overrides for secrets, grounded on
// resolver-go/internal/config's Load pattern.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration record.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Cache       CacheConfig       `yaml:"cache"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Auth        AuthConfig        `yaml:"auth"`
	Deprecation DeprecationConfig `yaml:"deprecation"`
}

// ServerConfig configures the HTTP bind address.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CatalogConfig locates the catalog definition file and toggles hot-reload.
type CatalogConfig struct {
	DefinitionFile string `yaml:"definition_file"`
	Watch          bool   `yaml:"watch"`
}

// CacheConfig configures the resolution cache.
type CacheConfig struct {
	MaxSize           int `yaml:"max_size"`
	DefaultTTLSeconds int `yaml:"default_ttl_seconds"`
}

// TelemetryConfig configures the usage-event emitter.
type TelemetryConfig struct {
	Enabled              bool                   `yaml:"enabled"`
	SinkType             string                 `yaml:"sink_type"`
	SinkConfig           map[string]interface{} `yaml:"sink_config"`
	BatchSize            int                    `yaml:"batch_size"`
	FlushIntervalSeconds float64                `yaml:"flush_interval_seconds"`
	MaxQueueSize         int                    `yaml:"max_queue_size"`
}

// AuthConfig holds the bearer tokens for the submit/approve lanes. Values
// here are overridable by environment variables so secrets never need to
// live in the checked-in YAML.
type AuthConfig struct {
	SubmitToken      string `yaml:"submit_token"`
	ApproveToken     string `yaml:"approve_token"`
	LegacyWriteToken string `yaml:"legacy_write_token"`
}

// DeprecationConfig toggles successor-redirect behavior on resolve.
type DeprecationConfig struct {
	Enabled           bool `yaml:"enabled"`
	RedirectOnResolve bool `yaml:"redirect_on_resolve"`
}

const (
	envSubmitToken  = "RESOLVER_SUBMIT_TOKEN"
	envApproveToken = "RESOLVER_APPROVE_TOKEN"
	envWriteToken   = "RESOLVER_WRITE_TOKEN"
	envPort         = "RESOLVER_PORT"
)

// Load reads configPath as YAML and applies environment overrides.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Cache.MaxSize == 0 {
		cfg.Cache.MaxSize = 5000
	}
	if cfg.Cache.DefaultTTLSeconds == 0 {
		cfg.Cache.DefaultTTLSeconds = 300
	}
	if cfg.Telemetry.BatchSize == 0 {
		cfg.Telemetry.BatchSize = 50
	}
	if cfg.Telemetry.FlushIntervalSeconds == 0 {
		cfg.Telemetry.FlushIntervalSeconds = 1
	}
	if cfg.Telemetry.MaxQueueSize == 0 {
		cfg.Telemetry.MaxQueueSize = 10000
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envSubmitToken); v != "" {
		cfg.Auth.SubmitToken = v
	}
	if v := os.Getenv(envApproveToken); v != "" {
		cfg.Auth.ApproveToken = v
	}
	if v := os.Getenv(envWriteToken); v != "" {
		cfg.Auth.LegacyWriteToken = v
	}
	if v := os.Getenv(envPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

// FlushInterval returns the configured telemetry flush interval as a
// time.Duration.
func (c *TelemetryConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalSeconds * float64(time.Second))
}

// DefaultTTL returns the configured cache TTL as a time.Duration.
func (c *CacheConfig) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLSeconds) * time.Second
}
