package api

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/verity/internal/config"
	"github.com/JaimeStill/verity/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	logger *slog.Logger,
) {
	patterns := routes.Register(
		mux,
		domain.Detections.Handler(cfg.API.MaxBundleSizeBytes()).Routes(),
		domain.Reliability.Routes(),
	)
	logger.Debug("routes registered", "base_path", cfg.API.BasePath, "patterns", patterns)
}
