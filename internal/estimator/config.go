package estimator

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/JaimeStill/verity/pkg/envvar"
)

// Config configures the external probability estimator. An empty URL
// disables it and leaves the rule-based estimator in place.
type Config struct {
	Name             string `toml:"name"`
	URL              string `toml:"url"`
	Timeout          string `toml:"timeout"`
	MaxRequests      uint32 `toml:"max_requests"`
	Interval         string `toml:"interval"`
	OpenTimeout      string `toml:"open_timeout"`
	FailureThreshold uint32 `toml:"failure_threshold"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	URL     string
	Timeout string
}

// Enabled reports whether an external estimator is configured.
func (c *Config) Enabled() bool {
	return c.URL != ""
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// IntervalDuration returns Interval as a time.Duration.
func (c *Config) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// OpenTimeoutDuration returns OpenTimeout as a time.Duration.
func (c *Config) OpenTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.OpenTimeout)
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
	if overlay.Name != "" {
		c.Name = overlay.Name
	}
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxRequests != 0 {
		c.MaxRequests = overlay.MaxRequests
	}
	if overlay.Interval != "" {
		c.Interval = overlay.Interval
	}
	if overlay.OpenTimeout != "" {
		c.OpenTimeout = overlay.OpenTimeout
	}
	if overlay.FailureThreshold != 0 {
		c.FailureThreshold = overlay.FailureThreshold
	}
}

func (c *Config) loadDefaults() {
	if c.Name == "" {
		c.Name = "external"
	}
	if c.Timeout == "" {
		c.Timeout = "2s"
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	if c.Interval == "" {
		c.Interval = "1m"
	}
	if c.OpenTimeout == "" {
		c.OpenTimeout = "30s"
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
}

func (c *Config) loadEnv(env *Env) {
	envvar.String(env.URL, &c.URL)
	envvar.String(env.Timeout, &c.Timeout)
}

func (c *Config) validate() error {
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid url: %q", c.URL)
		}
	}
	for name, v := range map[string]string{
		"timeout":      c.Timeout,
		"interval":     c.Interval,
		"open_timeout": c.OpenTimeout,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive: %s", name, strconv.Quote(v))
		}
	}
	return nil
}
