// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, reliability, engine)
// that domain systems require.
package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JaimeStill/verity/internal/config"
	"github.com/JaimeStill/verity/internal/estimator"
	"github.com/JaimeStill/verity/internal/fusion"
	"github.com/JaimeStill/verity/internal/reliability"
	"github.com/JaimeStill/verity/pkg/database"
	"github.com/JaimeStill/verity/pkg/lifecycle"
	"github.com/JaimeStill/verity/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// Storage is nil when no archive is configured.
type Infrastructure struct {
	Lifecycle   *lifecycle.Coordinator
	Logger      *slog.Logger
	Database    database.System
	Storage     storage.System
	Reliability reliability.Store
	Engine      *fusion.Engine
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	logger := NewLogger(os.Stderr, cfg.LogLevel)
	lc := lifecycle.New(logger)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	var archive storage.System
	if cfg.Storage.Enabled() {
		archive, err = storage.New(&cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("storage init failed: %w", err)
		}
	}

	store, err := reliability.Open(&cfg.Reliability, db.Connection(), logger)
	if err != nil {
		return nil, fmt.Errorf("reliability init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle:   lc,
		Logger:      logger,
		Database:    db,
		Storage:     archive,
		Reliability: store,
		Engine:      NewEngine(cfg, store, logger),
	}, nil
}

// NewEngine builds the fusion engine over the given weight source, attaching
// the external estimator when one is configured.
func NewEngine(cfg *config.Config, weights fusion.WeightSource, logger *slog.Logger) *fusion.Engine {
	var opts []fusion.Option
	if cfg.Estimator.Enabled() {
		opts = append(opts, fusion.WithEstimator(estimator.New(&cfg.Estimator, logger)))
	}
	return fusion.New(cfg.Engine, weights, logger, opts...)
}

// NewLogger creates a text logger at the named level. Unknown levels log at info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// The reliability store is closed during shutdown.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if i.Storage != nil {
		if err := i.Storage.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
	}

	i.Lifecycle.OnShutdown("reliability", func(context.Context) error {
		return i.Reliability.Close()
	})
	return nil
}
