package main

import (
	"net/http"

	"github.com/JaimeStill/verity/internal/api"
	"github.com/JaimeStill/verity/internal/config"
	"github.com/JaimeStill/verity/internal/infrastructure"
	"github.com/JaimeStill/verity/internal/metrics"
	"github.com/JaimeStill/verity/pkg/handlers"
	"github.com/JaimeStill/verity/pkg/module"
)

type healthStatus struct {
	Status string `json:"status"`
}

// newRouter creates the top-level router with the operational endpoints
// that live outside any module: liveness, readiness and Prometheus metrics.
func newRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, healthStatus{Status: "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			handlers.RespondJSON(w, http.StatusServiceUnavailable, healthStatus{Status: "not ready"})
			return
		}
		handlers.RespondJSON(w, http.StatusOK, healthStatus{Status: "ready"})
	})

	router.Handle("GET /metrics", metrics.Handler())

	return router
}

func mountModules(router *module.Router, cfg *config.Config, infra *infrastructure.Infrastructure) error {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return err
	}
	router.Mount(apiModule)
	return nil
}
