// Package migrations embeds the PostgreSQL schema and applies it with
// golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
)

//go:embed *.sql
var files embed.FS

// Source returns a migration source over the embedded SQL files.
func Source() (source.Driver, error) {
	return iofs.New(files, ".")
}

// Versions lists the embedded migration versions in ascending order.
func Versions() ([]uint, error) {
	src, err := Source()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return nil, fmt.Errorf("first migration: %w", err)
	}

	versions := []uint{v}
	for {
		v, err = src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return versions, nil
		}
		if err != nil {
			return nil, fmt.Errorf("next migration after %d: %w", v, err)
		}
		versions = append(versions, v)
	}
}

// Runner applies embedded migrations to a single database.
type Runner struct {
	m      *migrate.Migrate
	logger *slog.Logger
}

// New opens a Runner against the postgres dsn.
func New(dsn string, logger *slog.Logger) (*Runner, error) {
	src, err := Source()
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	logger = logger.With("system", "migrations")
	m.Log = migrateLogger{logger}
	return &Runner{m: m, logger: logger}, nil
}

// Up applies every pending migration.
func (r *Runner) Up() error {
	return r.run("up", r.m.Up)
}

// Down reverts every applied migration.
func (r *Runner) Down() error {
	return r.run("down", r.m.Down)
}

// Steps applies n migrations, reverting when n is negative.
func (r *Runner) Steps(n int) error {
	return r.run(fmt.Sprintf("steps %d", n), func() error { return r.m.Steps(n) })
}

// Force records version v as applied without running it, clearing the dirty flag.
func (r *Runner) Force(v int) error {
	if err := r.m.Force(v); err != nil {
		return fmt.Errorf("force version %d: %w", v, err)
	}
	r.logger.Info("migration version forced", "version", v)
	return nil
}

// Version reports the applied version. A database with no migrations
// reports version 0.
func (r *Runner) Version() (uint, bool, error) {
	v, dirty, err := r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Close releases the source and database handles.
func (r *Runner) Close() error {
	srcErr, dbErr := r.m.Close()
	return errors.Join(srcErr, dbErr)
}

func (r *Runner) run(op string, fn func() error) error {
	err := fn()
	if errors.Is(err, migrate.ErrNoChange) {
		r.logger.Info("no migrations to apply", "op", op)
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	v, dirty, _ := r.Version()
	r.logger.Info("migrations applied", "op", op, "version", v, "dirty", dirty)
	return nil
}

type migrateLogger struct {
	logger *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l migrateLogger) Verbose() bool {
	return false
}
