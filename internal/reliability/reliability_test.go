package reliability_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/verity/internal/reliability"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) reliability.Store {
	t.Helper()
	s, err := reliability.OpenBadger("", discard())
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWeight(t *testing.T) {
	tests := []struct {
		name      string
		correct   float64
		incorrect float64
		want      float64
	}{
		{"no feedback", 0, 0, 1.0},
		{"balanced", 5, 5, 1.0},
		{"one correct", 1, 0, 1 + (2.0/3-0.5)*2*(0.5+0.5*math.Log10(11)/2)},
		{"one incorrect", 0, 1, 1 + (1.0/3-0.5)*2*(0.5+0.5*math.Log10(11)/2)},
		{"saturated correct", 10000, 0, 2.2},
		{"saturated incorrect", 0, 10000, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reliability.Weight(tt.correct, tt.incorrect)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Weight(%v, %v) = %v, want %v", tt.correct, tt.incorrect, got, tt.want)
			}
		})
	}
}

func TestWeightBoundsAndMonotonicity(t *testing.T) {
	prev := 0.0
	for c := 0.0; c <= 200; c += 0.5 {
		w := reliability.Weight(c, 10)
		if w < reliability.MinWeight || w > reliability.MaxWeight {
			t.Fatalf("Weight(%v, 10) = %v out of bounds", c, w)
		}
		if w < prev {
			t.Fatalf("Weight decreased at correct=%v: %v < %v", c, w, prev)
		}
		prev = w
	}
}

func TestBadgerRecord(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	id := uuid.New()
	fb := reliability.Feedback{
		DetectionID: id,
		Correct:     true,
		Contributions: map[string]float64{
			"freq_artifacts": 0.9,
			"edge_artifacts": 1.4,
			"eye_blink":      0,
			"scene_logic":    math.NaN(),
		},
	}

	applied, err := s.Record(ctx, fb)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !applied {
		t.Fatal("first Record not applied")
	}

	applied, err = s.Record(ctx, fb)
	if err != nil {
		t.Fatalf("second Record: %v", err)
	}
	if applied {
		t.Error("duplicate feedback applied twice")
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	got := map[string]reliability.Reliability{}
	for _, r := range stats {
		got[r.Metric] = r
	}
	if len(got) != 2 {
		t.Fatalf("metrics = %v, want freq_artifacts and edge_artifacts only", got)
	}
	if r := got["freq_artifacts"]; r.CorrectCount != 0.9 || r.IncorrectCount != 0 {
		t.Errorf("freq_artifacts = %+v", r)
	}
	if r := got["edge_artifacts"]; r.CorrectCount != 1 {
		t.Errorf("edge_artifacts correct = %v, want clamped to 1", r.CorrectCount)
	}
	if r := got["freq_artifacts"]; r.Weight != reliability.Weight(0.9, 0) {
		t.Errorf("weight = %v, want %v", r.Weight, reliability.Weight(0.9, 0))
	}
}

func TestBadgerWeightsFollowFeedback(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	for range 3 {
		if _, err := s.Record(ctx, reliability.Feedback{
			DetectionID:   uuid.New(),
			Contributions: map[string]float64{"watermark": 1},
			Correct:       false,
		}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	w, err := s.Weights(ctx)
	if err != nil {
		t.Fatalf("Weights: %v", err)
	}
	if w["watermark"] >= reliability.NeutralWeight {
		t.Errorf("watermark weight = %v, want below neutral", w["watermark"])
	}
	if _, ok := w["freq_artifacts"]; ok {
		t.Error("metric without feedback present in weights")
	}
}

func TestBadgerConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for range n {
		wg.Go(func() {
			_, err := s.Record(ctx, reliability.Feedback{
				DetectionID:   uuid.New(),
				Contributions: map[string]float64{"codec": 1},
				Correct:       true,
			})
			if err != nil {
				errs <- err
			}
		})
	}
	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		failed++
		t.Logf("record failed: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 1 || stats[0].CorrectCount != float64(n-failed) {
		t.Errorf("stats = %+v, want %d correct", stats, n-failed)
	}
}

func TestBadgerClosed(t *testing.T) {
	s, err := reliability.OpenBadger("", discard())
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	if _, err := s.Weights(context.Background()); !errors.Is(err, reliability.ErrClosed) {
		t.Errorf("Weights after close = %v, want ErrClosed", err)
	}
	if _, err := s.Record(context.Background(), reliability.Feedback{DetectionID: uuid.New()}); !errors.Is(err, reliability.ErrClosed) {
		t.Errorf("Record after close = %v, want ErrClosed", err)
	}
}

type countingStore struct {
	reliability.Store
	weightCalls int
}

func (c *countingStore) Weights(ctx context.Context) (map[string]float64, error) {
	c.weightCalls++
	return c.Store.Weights(ctx)
}

func TestWithCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: openStore(t)}
	s := reliability.WithCache(inner, time.Minute)

	for range 3 {
		if _, err := s.Weights(ctx); err != nil {
			t.Fatalf("Weights: %v", err)
		}
	}
	if inner.weightCalls != 1 {
		t.Errorf("inner Weights calls = %d, want 1", inner.weightCalls)
	}

	w, _ := s.Weights(ctx)
	w["mutated"] = 9
	if again, _ := s.Weights(ctx); again["mutated"] == 9 {
		t.Error("cached snapshot shared with caller")
	}

	fb := reliability.Feedback{
		DetectionID:   uuid.New(),
		Contributions: map[string]float64{"freq_artifacts": 1},
		Correct:       true,
	}
	if _, err := s.Record(ctx, fb); err != nil {
		t.Fatalf("Record: %v", err)
	}

	w, err := s.Weights(ctx)
	if err != nil {
		t.Fatalf("Weights: %v", err)
	}
	if inner.weightCalls != 2 {
		t.Errorf("inner Weights calls = %d, want 2 after invalidation", inner.weightCalls)
	}
	if w["freq_artifacts"] <= reliability.NeutralWeight {
		t.Errorf("freq_artifacts = %v, want above neutral", w["freq_artifacts"])
	}

	if _, err := s.Record(ctx, fb); err != nil {
		t.Fatalf("duplicate Record: %v", err)
	}
	s.Weights(ctx)
	if inner.weightCalls != 2 {
		t.Errorf("duplicate feedback invalidated cache: %d calls", inner.weightCalls)
	}
}

// racingStore runs during once, after the inner snapshot is read and before
// it is returned, so a Record can land mid-read.
type racingStore struct {
	reliability.Store
	weightCalls int
	during      func()
}

func (r *racingStore) Weights(ctx context.Context) (map[string]float64, error) {
	r.weightCalls++
	w, err := r.Store.Weights(ctx)
	if f := r.during; f != nil {
		r.during = nil
		f()
	}
	return w, err
}

func TestWithCacheSkipsSnapshotOverlappingRecord(t *testing.T) {
	ctx := context.Background()
	inner := &racingStore{Store: openStore(t)}
	s := reliability.WithCache(inner, time.Minute)

	inner.during = func() {
		fb := reliability.Feedback{
			DetectionID:   uuid.New(),
			Contributions: map[string]float64{"edge_artifacts": 1},
			Correct:       true,
		}
		if _, err := s.Record(ctx, fb); err != nil {
			t.Errorf("Record: %v", err)
		}
	}

	stale, err := s.Weights(ctx)
	if err != nil {
		t.Fatalf("Weights: %v", err)
	}
	if _, ok := stale["edge_artifacts"]; ok {
		t.Fatalf("first read should predate the record: %v", stale)
	}

	fresh, err := s.Weights(ctx)
	if err != nil {
		t.Fatalf("Weights: %v", err)
	}
	if inner.weightCalls != 2 {
		t.Errorf("inner Weights calls = %d, want 2", inner.weightCalls)
	}
	if fresh["edge_artifacts"] <= reliability.NeutralWeight {
		t.Errorf("edge_artifacts = %v, want above neutral", fresh["edge_artifacts"])
	}

	s.Weights(ctx)
	if inner.weightCalls != 2 {
		t.Errorf("fresh snapshot not cached: %d calls", inner.weightCalls)
	}
}

func TestWithCacheDisabled(t *testing.T) {
	inner := openStore(t)
	if s := reliability.WithCache(inner, 0); s != inner {
		t.Error("zero ttl should return the store unchanged")
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var c reliability.Config
		if err := c.Finalize(nil); err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if c.Driver != reliability.DriverPostgres {
			t.Errorf("driver = %s, want postgres", c.Driver)
		}
		if c.CacheTTLDuration() != 30*time.Second {
			t.Errorf("cache ttl = %v, want 30s", c.CacheTTLDuration())
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_RELIABILITY_DRIVER", "badger")
		t.Setenv("TEST_RELIABILITY_CACHE_TTL", "5s")

		var c reliability.Config
		err := c.Finalize(&reliability.Env{
			Driver:   "TEST_RELIABILITY_DRIVER",
			CacheTTL: "TEST_RELIABILITY_CACHE_TTL",
		})
		if err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if c.Driver != reliability.DriverBadger {
			t.Errorf("driver = %s, want badger", c.Driver)
		}
		if c.CacheTTLDuration() != 5*time.Second {
			t.Errorf("cache ttl = %v, want 5s", c.CacheTTLDuration())
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, c := range []reliability.Config{
			{Driver: "sqlite"},
			{CacheTTL: "soon"},
		} {
			if err := c.Finalize(nil); err == nil {
				t.Errorf("Finalize(%+v) succeeded, want error", c)
			}
		}
	})
}

func TestOpen(t *testing.T) {
	if _, err := reliability.Open(&reliability.Config{Driver: reliability.DriverPostgres}, nil, discard()); err == nil {
		t.Error("postgres without database should fail")
	}

	s, err := reliability.Open(&reliability.Config{Driver: reliability.DriverBadger, CacheTTL: "1s"}, nil, discard())
	if err != nil {
		t.Fatalf("Open badger: %v", err)
	}
	defer s.Close()

	if _, err := s.Weights(context.Background()); err != nil {
		t.Errorf("Weights: %v", err)
	}
}
