package migrations_test

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/verity/internal/migrations"
)

func TestVersions(t *testing.T) {
	got, err := migrations.Versions()
	if err != nil {
		t.Fatalf("Versions() error = %v", err)
	}
	if diff := cmp.Diff([]uint{1, 2}, got); diff != "" {
		t.Errorf("versions mismatch (-want +got):\n%s", diff)
	}
}

func TestSourcePairsUpAndDown(t *testing.T) {
	src, err := migrations.Source()
	if err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	defer src.Close()

	versions, err := migrations.Versions()
	if err != nil {
		t.Fatalf("Versions() error = %v", err)
	}

	for _, v := range versions {
		up, _, err := src.ReadUp(v)
		if err != nil {
			t.Fatalf("version %d has no up migration: %v", v, err)
		}
		body, _ := io.ReadAll(up)
		up.Close()
		if !strings.Contains(string(body), "CREATE TABLE") {
			t.Errorf("version %d up migration creates no table", v)
		}

		down, _, err := src.ReadDown(v)
		if err != nil {
			t.Fatalf("version %d has no down migration: %v", v, err)
		}
		down.Close()
	}
}

func TestNewInvalidDSN(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	if _, err := migrations.New("mysql://nope", logger); err == nil {
		t.Fatal("expected error for unsupported database scheme")
	}
}
