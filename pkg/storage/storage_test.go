package storage_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/JaimeStill/verity/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=veritystore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/veritystore;"

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewReturnsSystem(t *testing.T) {
	cfg := &storage.Config{
		ContainerName:    "evidence",
		ConnectionString: azuriteConnString,
	}

	sys, err := storage.New(cfg, discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if sys == nil {
		t.Fatal("New() returned nil system")
	}
}

func TestNewInvalidConnectionString(t *testing.T) {
	cfg := &storage.Config{
		ContainerName:    "evidence",
		ConnectionString: "not-a-connection-string",
	}

	if _, err := storage.New(cfg, discard()); err == nil {
		t.Fatal("expected error for invalid connection string, got nil")
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ErrNotFound maps to 404", storage.ErrNotFound, http.StatusNotFound},
		{"ErrEmptyKey maps to 400", storage.ErrEmptyKey, http.StatusBadRequest},
		{"ErrInvalidKey maps to 400", storage.ErrInvalidKey, http.StatusBadRequest},
		{"wrapped ErrNotFound maps to 404", fmt.Errorf("operation failed: %w", storage.ErrNotFound), http.StatusNotFound},
		{"unknown error maps to 500", fmt.Errorf("unexpected failure"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := storage.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConfig(t *testing.T) {
	t.Run("disabled without connection string", func(t *testing.T) {
		var cfg storage.Config
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if cfg.Enabled() {
			t.Error("storage should be disabled")
		}
		if cfg.ContainerName != "evidence" {
			t.Errorf("container = %q, want evidence", cfg.ContainerName)
		}
	})

	t.Run("env enables storage", func(t *testing.T) {
		t.Setenv("TEST_STORAGE_CONN", azuriteConnString)
		t.Setenv("TEST_STORAGE_CONTAINER", "archive")

		var cfg storage.Config
		err := cfg.Finalize(&storage.Env{
			ContainerName:    "TEST_STORAGE_CONTAINER",
			ConnectionString: "TEST_STORAGE_CONN",
		})
		if err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if !cfg.Enabled() {
			t.Error("storage should be enabled")
		}
		if cfg.ContainerName != "archive" {
			t.Errorf("container = %q, want archive", cfg.ContainerName)
		}
	})

	t.Run("invalid container name", func(t *testing.T) {
		for _, name := range []string{"ev", "Evidence", "evidence-", "evi--dence"} {
			cfg := storage.Config{ContainerName: name}
			if err := cfg.Finalize(nil); err == nil {
				t.Errorf("container %q: expected validation error", name)
			}
		}
	})

	t.Run("merge", func(t *testing.T) {
		cfg := storage.Config{ContainerName: "evidence"}
		cfg.Merge(&storage.Config{ConnectionString: "conn"})

		if cfg.ContainerName != "evidence" || cfg.ConnectionString != "conn" {
			t.Errorf("merged = %+v", cfg)
		}
	})
}

func TestKeyValidation(t *testing.T) {
	cfg := &storage.Config{
		ContainerName:    "evidence",
		ConnectionString: azuriteConnString,
	}

	sys, err := storage.New(cfg, discard())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"empty key", "", storage.ErrEmptyKey},
		{"path traversal", "detections/../secrets/key", storage.ErrInvalidKey},
		{"absolute key", "/detections/evidence.json", storage.ErrInvalidKey},
		{"dot segment", "detections/./evidence.json", storage.ErrInvalidKey},
		{"backslash", `detections\evidence.json`, storage.ErrInvalidKey},
	}

	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sys.Put(ctx, tt.key, []byte("{}"), "application/json")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Put() error = %v, want %v", err, tt.wantErr)
			}

			_, err = sys.Get(ctx, tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Get() error = %v, want %v", err, tt.wantErr)
			}

			err = sys.Delete(ctx, tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Delete() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
