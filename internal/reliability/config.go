package reliability

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/verity/pkg/envvar"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

// Config selects and tunes the reliability store backend.
type Config struct {
	Driver     string `toml:"driver"`
	BadgerPath string `toml:"badger_path"`
	CacheTTL   string `toml:"cache_ttl"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Driver     string
	BadgerPath string
	CacheTTL   string
}

// CacheTTLDuration returns CacheTTL as a time.Duration.
func (c *Config) CacheTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.CacheTTL)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Driver != "" {
		c.Driver = overlay.Driver
	}
	if overlay.BadgerPath != "" {
		c.BadgerPath = overlay.BadgerPath
	}
	if overlay.CacheTTL != "" {
		c.CacheTTL = overlay.CacheTTL
	}
}

// Open creates the configured store. db is only used by the postgres driver.
func Open(cfg *Config, db *sql.DB, logger *slog.Logger) (Store, error) {
	var (
		s   Store
		err error
	)

	switch cfg.Driver {
	case DriverPostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres driver requires a database connection")
		}
		s = NewPostgres(db, logger)
	case DriverBadger:
		s, err = OpenBadger(cfg.BadgerPath, logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown reliability driver: %q", cfg.Driver)
	}

	return WithCache(s, cfg.CacheTTLDuration()), nil
}

func (c *Config) loadDefaults() {
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	if c.BadgerPath == "" {
		c.BadgerPath = "data/reliability"
	}
	if c.CacheTTL == "" {
		c.CacheTTL = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	envvar.String(env.Driver, &c.Driver)
	envvar.String(env.BadgerPath, &c.BadgerPath)
	envvar.String(env.CacheTTL, &c.CacheTTL)
}

func (c *Config) validate() error {
	switch c.Driver {
	case DriverPostgres, DriverBadger:
	default:
		return fmt.Errorf("invalid driver: %q", c.Driver)
	}
	if _, err := time.ParseDuration(c.CacheTTL); err != nil {
		return fmt.Errorf("invalid cache_ttl: %w", err)
	}
	return nil
}
