package config

import (
	"fmt"

	"github.com/JaimeStill/verity/pkg/envvar"
	"github.com/JaimeStill/verity/pkg/formatting"
	"github.com/JaimeStill/verity/pkg/middleware"
	"github.com/JaimeStill/verity/pkg/module"
	"github.com/JaimeStill/verity/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "VERITY_CORS_ENABLED",
	Origins:          "VERITY_CORS_ORIGINS",
	AllowedMethods:   "VERITY_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "VERITY_CORS_ALLOWED_HEADERS",
	AllowCredentials: "VERITY_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "VERITY_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "VERITY_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "VERITY_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, CORS, pagination, and request size settings.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxBundleSize string                `toml:"max_bundle_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
}

const defaultMaxBundleSize = 1 << 20

// MaxBundleSizeBytes returns the per-bundle request body limit, falling back
// to 1MB when the configured size does not parse.
func (c *APIConfig) MaxBundleSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxBundleSize)
	if err != nil || size <= 0 {
		return defaultMaxBundleSize
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := module.ValidatePrefix(c.BasePath); err != nil {
		return fmt.Errorf("base_path: %w", err)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxBundleSize != "" {
		c.MaxBundleSize = overlay.MaxBundleSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxBundleSize == "" {
		c.MaxBundleSize = "1MB"
	}
}

func (c *APIConfig) loadEnv() {
	envvar.String("VERITY_API_BASE_PATH", &c.BasePath)
	envvar.String("VERITY_API_MAX_BUNDLE_SIZE", &c.MaxBundleSize)
}
