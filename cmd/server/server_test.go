package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/verity/internal/infrastructure"
	"github.com/JaimeStill/verity/pkg/lifecycle"
)

func TestOperationalRoutes(t *testing.T) {
	infra := &infrastructure.Infrastructure{Lifecycle: lifecycle.New(nil)}
	router := newRouter(infra)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	if rec := get("/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz: got %d, want 200", rec.Code)
	}

	if rec := get("/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before startup: got %d, want 503", rec.Code)
	}

	if err := infra.Lifecycle.WaitForStartup(); err != nil {
		t.Fatalf("startup: %v", err)
	}
	if rec := get("/readyz"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ready"`) {
		t.Errorf("readyz after startup: got %d %s", rec.Code, rec.Body.String())
	}

	rec := get("/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("metrics: got %d", rec.Code)
	}
}
