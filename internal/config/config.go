package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/verity/internal/estimator"
	"github.com/JaimeStill/verity/internal/fusion"
	"github.com/JaimeStill/verity/internal/reliability"
	"github.com/JaimeStill/verity/pkg/database"
	"github.com/JaimeStill/verity/pkg/envvar"
	"github.com/JaimeStill/verity/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvVerityEnv             = "VERITY_ENV"
	EnvVerityShutdownTimeout = "VERITY_SHUTDOWN_TIMEOUT"
	EnvVerityVersion         = "VERITY_VERSION"
	EnvVerityLogLevel        = "VERITY_LOG_LEVEL"
)

var databaseEnv = &database.Env{
	Host:            "VERITY_DB_HOST",
	Port:            "VERITY_DB_PORT",
	Name:            "VERITY_DB_NAME",
	User:            "VERITY_DB_USER",
	Password:        "VERITY_DB_PASSWORD",
	SSLMode:         "VERITY_DB_SSL_MODE",
	MaxOpenConns:    "VERITY_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "VERITY_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "VERITY_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "VERITY_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "VERITY_STORAGE_CONTAINER_NAME",
	ConnectionString: "VERITY_STORAGE_CONNECTION_STRING",
}

var engineEnv = &fusion.Env{
	AIThreshold:   "VERITY_ENGINE_AI_THRESHOLD",
	RealThreshold: "VERITY_ENGINE_REAL_THRESHOLD",
	UnsureLow:     "VERITY_ENGINE_UNSURE_LOW",
	UnsureHigh:    "VERITY_ENGINE_UNSURE_HIGH",
	AllowAbstain:  "VERITY_ENGINE_ALLOW_ABSTAIN",
	HardAIMin:     "VERITY_ENGINE_HARD_AI_MIN",
}

var reliabilityEnv = &reliability.Env{
	Driver:     "VERITY_RELIABILITY_DRIVER",
	BadgerPath: "VERITY_RELIABILITY_BADGER_PATH",
	CacheTTL:   "VERITY_RELIABILITY_CACHE_TTL",
}

var estimatorEnv = &estimator.Env{
	URL:     "VERITY_ESTIMATOR_URL",
	Timeout: "VERITY_ESTIMATOR_TIMEOUT",
}

// Config is the root configuration for the Verity service.
type Config struct {
	Server          ServerConfig       `toml:"server"`
	Database        database.Config    `toml:"database"`
	Storage         storage.Config     `toml:"storage"`
	API             APIConfig          `toml:"api"`
	Engine          fusion.Config      `toml:"engine"`
	Reliability     reliability.Config `toml:"reliability"`
	Estimator       estimator.Config   `toml:"estimator"`
	LogLevel        string             `toml:"log_level"`
	ShutdownTimeout string             `toml:"shutdown_timeout"`
	Version         string             `toml:"version"`
}

// Env returns the VERITY_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvVerityEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg, err := read(BaseConfigFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// LoadEngine reads path the same way Load does but finalizes only the
// sections needed to evaluate bundles offline: engine, reliability and
// estimator. Server, database, storage and API sections are left raw.
func LoadEngine(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	cfg.loadDefaults()
	cfg.loadEnv()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	if err := cfg.finalizeEngine(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Engine.Merge(&overlay.Engine)
	c.Reliability.Merge(&overlay.Reliability)
	c.Estimator.Merge(&overlay.Estimator)
}

func (c *Config) finalizeEngine() error {
	if err := c.Engine.Finalize(engineEnv); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Reliability.Finalize(reliabilityEnv); err != nil {
		return fmt.Errorf("reliability: %w", err)
	}
	if err := c.Estimator.Finalize(estimatorEnv); err != nil {
		return fmt.Errorf("estimator: %w", err)
	}
	return nil
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return c.finalizeEngine()
}

func (c *Config) loadDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	envvar.String(EnvVerityLogLevel, &c.LogLevel)
	envvar.String(EnvVerityShutdownTimeout, &c.ShutdownTimeout)
	envvar.String(EnvVerityVersion, &c.Version)
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}
	return nil
}

func read(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		loaded, err := load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	return cfg, nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvVerityEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
