package main

import (
	"context"
	"fmt"

	"github.com/JaimeStill/verity/internal/config"
	"github.com/JaimeStill/verity/internal/infrastructure"
	"github.com/JaimeStill/verity/pkg/module"
)

// Server wires infrastructure, the mounted API module and the HTTP listener
// for one process.
type Server struct {
	cfg    *config.Config
	infra  *infrastructure.Infrastructure
	router *module.Router
	http   *httpServer
}

// NewServer initializes every subsystem without starting any of them.
func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	router := newRouter(infra)
	if err := mountModules(router, cfg, infra); err != nil {
		return nil, fmt.Errorf("mount modules: %w", err)
	}

	return &Server{
		cfg:    cfg,
		infra:  infra,
		router: router,
		http:   newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Run starts the service and blocks until ctx is cancelled, then shuts down
// within the configured timeout. A failed startup hook leaves the process
// serving with /readyz reporting 503 so orchestrators can restart it.
func (s *Server) Run(ctx context.Context) error {
	log := s.infra.Logger

	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	log.Info("verity started",
		"version", s.cfg.Version,
		"addr", s.cfg.Server.Addr(),
		"env", s.cfg.Env(),
	)

	go func() {
		if err := s.infra.Lifecycle.WaitForStartup(); err != nil {
			log.Error("startup failed, readiness withheld", "error", err)
			return
		}
		log.Info("all subsystems ready")
	}()

	<-ctx.Done()
	log.Info("initiating shutdown")

	if err := s.infra.Lifecycle.Shutdown(s.cfg.ShutdownTimeoutDuration()); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("verity stopped")
	return nil
}
