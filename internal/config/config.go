// Package config loads the searchsync YAML configuration with environment
// variable expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/lumenpress/searchsync/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config holds the searchsync service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Engine   EngineConfig   `yaml:"engine"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Auth     AuthConfig     `yaml:"auth"`
	Sync     SyncConfig     `yaml:"sync"`
	Health   HealthConfig   `yaml:"health"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EngineConfig holds search engine connection settings.
type EngineConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	IndexUID   string `yaml:"index_uid"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// DatabaseConfig holds relational store settings.
type DatabaseConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_sec"`
}

// CacheConfig holds shared cache connection settings.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SyncConfig holds reindex and observability ring settings.
type SyncConfig struct {
	BatchSize     int `yaml:"batch_size"`
	Workers       int `yaml:"workers"`
	QueryRingSize int `yaml:"query_ring_size"`
	SyncRingSize  int `yaml:"sync_ring_size"`
	RingTTLSec    int `yaml:"ring_ttl_sec"`
	HealthTTLSec  int `yaml:"health_ttl_sec"`
}

// HealthConfig holds classification thresholds. Error rates are fractions
// (0.05 = 5%).
type HealthConfig struct {
	DegradedLatencyMS  float64 `yaml:"degraded_latency_ms"`
	UnhealthyLatencyMS float64 `yaml:"unhealthy_latency_ms"`
	DegradedErrorRate  float64 `yaml:"degraded_error_rate"`
	UnhealthyErrorRate float64 `yaml:"unhealthy_error_rate"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Engine.IndexUID == "" {
		c.Engine.IndexUID = "content"
	}
	if c.Engine.TimeoutSec <= 0 {
		c.Engine.TimeoutSec = 5
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "searchsync:"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Sync.BatchSize <= 0 {
		c.Sync.BatchSize = 100
	}
	if c.Sync.Workers <= 0 {
		c.Sync.Workers = 2
	}
	if c.Sync.QueryRingSize <= 0 {
		c.Sync.QueryRingSize = 50
	}
	if c.Sync.SyncRingSize <= 0 {
		c.Sync.SyncRingSize = 10
	}
	if c.Sync.RingTTLSec <= 0 {
		c.Sync.RingTTLSec = 3600
	}
	if c.Sync.HealthTTLSec <= 0 {
		c.Sync.HealthTTLSec = 300
	}
	if c.Health.DegradedLatencyMS <= 0 {
		c.Health.DegradedLatencyMS = 100
	}
	if c.Health.UnhealthyLatencyMS <= 0 {
		c.Health.UnhealthyLatencyMS = 500
	}
	if c.Health.DegradedErrorRate <= 0 {
		c.Health.DegradedErrorRate = 0.01
	}
	if c.Health.UnhealthyErrorRate <= 0 {
		c.Health.UnhealthyErrorRate = 0.05
	}
}

// Validate checks the configuration for correctness. Engine and database
// settings are required up front: a missing credential must fail at startup,
// not on the first sync.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("%w: http.port must be between 1 and 65535, got %d", domain.ErrConfig, c.HTTP.Port)
	}
	if c.Engine.URL == "" {
		return fmt.Errorf("%w: engine.url is required", domain.ErrConfig)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn is required", domain.ErrConfig)
	}
	if len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("%w: cache.addrs is required", domain.ErrConfig)
	}
	if c.Health.DegradedLatencyMS >= c.Health.UnhealthyLatencyMS {
		return fmt.Errorf("%w: health.degraded_latency_ms must be below unhealthy_latency_ms", domain.ErrConfig)
	}
	if c.Health.DegradedErrorRate >= c.Health.UnhealthyErrorRate {
		return fmt.Errorf("%w: health.degraded_error_rate must be below unhealthy_error_rate", domain.ErrConfig)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
