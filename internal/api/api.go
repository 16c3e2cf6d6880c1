// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/JaimeStill/verity/internal/config"
	"github.com/JaimeStill/verity/internal/infrastructure"
	"github.com/JaimeStill/verity/internal/metrics"
	"github.com/JaimeStill/verity/pkg/middleware"
	"github.com/JaimeStill/verity/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime.Logger)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(middleware.Metrics(metrics.HTTP{}))
	m.Use(middleware.CORS(&cfg.API.CORS))

	return m, nil
}
