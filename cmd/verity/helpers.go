package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JaimeStill/verity/internal/config"
	"github.com/JaimeStill/verity/internal/evidence"
	"github.com/JaimeStill/verity/internal/fusion"
	"github.com/JaimeStill/verity/internal/infrastructure"
	"github.com/JaimeStill/verity/internal/reliability"
)

// session is the offline counterpart of the server infrastructure: an engine
// whose weights come from a badger store on local disk.
type session struct {
	logger *slog.Logger
	store  reliability.Store
	engine *fusion.Engine
}

func openSession(flags *rootFlags, stderr io.Writer) (*session, error) {
	cfg, err := config.LoadEngine(flags.config)
	if err != nil {
		return nil, err
	}

	level := "warn"
	if flags.verbose {
		level = "debug"
	}
	logger := infrastructure.NewLogger(stderr, level)

	cfg.Reliability.Driver = reliability.DriverBadger
	cfg.Reliability.BadgerPath = defaultDBPath
	if flags.db != "" {
		cfg.Reliability.BadgerPath = flags.db
	}

	store, err := reliability.Open(&cfg.Reliability, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("open reliability store: %w", err)
	}

	return &session{
		logger: logger,
		store:  store,
		engine: infrastructure.NewEngine(cfg, store, logger),
	}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

func readBundle(path string) (evidence.Bundle, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return evidence.Bundle{}, nil, fmt.Errorf("read bundle: %w", err)
	}

	b, err := evidence.Decode(data, evidence.FormatFromPath(path))
	if err != nil {
		return evidence.Bundle{}, nil, err
	}
	return b, data, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
