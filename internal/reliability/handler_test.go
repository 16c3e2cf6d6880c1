package reliability_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/verity/internal/reliability"
	"github.com/JaimeStill/verity/pkg/routes"
)

type failingStore struct {
	reliability.Store
}

func (failingStore) Weights(context.Context) (map[string]float64, error) {
	return nil, errors.New("database unavailable")
}

func (failingStore) Stats(context.Context) ([]reliability.Reliability, error) {
	return nil, errors.New("database unavailable")
}

func serve(h *reliability.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())
	return mux
}

func TestHandlerRoutes(t *testing.T) {
	h := reliability.NewHandler(openStore(t), discard())
	group := h.Routes()

	if group.Prefix != "/reliability" {
		t.Errorf("prefix = %s, want /reliability", group.Prefix)
	}
	if len(group.Routes) != 2 {
		t.Errorf("routes = %d, want 2", len(group.Routes))
	}
}

func TestHandlerStats(t *testing.T) {
	store := openStore(t)
	if _, err := store.Record(context.Background(), reliability.Feedback{
		DetectionID:   uuid.New(),
		Contributions: map[string]float64{"freq_artifacts": 0.8},
		Correct:       true,
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	mux := serve(reliability.NewHandler(store, discard()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reliability", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var stats []reliability.Reliability
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stats) != 1 || stats[0].Metric != "freq_artifacts" {
		t.Errorf("stats = %+v", stats)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reliability/weights", nil))

	var weights map[string]float64
	if err := json.NewDecoder(rec.Body).Decode(&weights); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if weights["freq_artifacts"] != reliability.Weight(0.8, 0) {
		t.Errorf("weights = %v", weights)
	}
}

func TestHandlerStoreError(t *testing.T) {
	mux := serve(reliability.NewHandler(failingStore{}, discard()))

	for _, path := range []string{"/reliability", "/reliability/weights"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s status: got %d, want 500", path, rec.Code)
		}
	}
}
