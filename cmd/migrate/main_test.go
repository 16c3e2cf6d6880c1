package main

import (
	"log/slog"
	"testing"
)

func TestResolveDSN(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(envDSN, "postgres://env@db/verity")
		if got := resolveDSN("postgres://flag@db/verity", logger); got != "postgres://flag@db/verity" {
			t.Errorf("dsn = %s", got)
		}
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(envDSN, "postgres://env@db/verity")
		if got := resolveDSN("", logger); got != "postgres://env@db/verity" {
			t.Errorf("dsn = %s", got)
		}
	})

	t.Run("service config", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("VERITY_DB_HOST", "db.internal")
		t.Setenv("VERITY_DB_NAME", "detections")
		t.Setenv("VERITY_DB_USER", "scorer")
		want := "postgres://scorer:@db.internal:5432/detections?sslmode=disable"
		if got := resolveDSN("", logger); got != want {
			t.Errorf("dsn = %s, want %s", got, want)
		}
	})

	t.Run("default when config is incomplete", func(t *testing.T) {
		t.Chdir(t.TempDir())
		if got := resolveDSN("", logger); got != defaultDSN {
			t.Errorf("dsn = %s, want default", got)
		}
	})
}
