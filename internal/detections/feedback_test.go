package detections_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/verity/internal/detections"
	"github.com/JaimeStill/verity/internal/evidence"
	"github.com/JaimeStill/verity/internal/fusion"
	"github.com/JaimeStill/verity/internal/reliability"
)

// claims mirrors the row-locked claim: the first submission per detection
// stores its command, later ones get the stored command back.
type claims struct {
	mu        sync.Mutex
	detection detections.Detection
	stored    map[uuid.UUID]detections.FeedbackCommand
}

func newClaims(d detections.Detection) *claims {
	return &claims{detection: d, stored: make(map[uuid.UUID]detections.FeedbackCommand)}
}

func (c *claims) claim(_ context.Context, id uuid.UUID, cmd detections.FeedbackCommand) (detections.Claim, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id != c.detection.ID {
		return detections.Claim{}, detections.ErrNotFound
	}
	if stored, ok := c.stored[id]; ok {
		return detections.NewClaim(c.detection, stored, false), nil
	}
	c.stored[id] = cmd
	return detections.NewClaim(c.detection, cmd, true), nil
}

type failOnceStore struct {
	reliability.Store
	failed bool
}

func (f *failOnceStore) Record(ctx context.Context, fb reliability.Feedback) (bool, error) {
	if !f.failed {
		f.failed = true
		return false, errors.New("connection reset")
	}
	return f.Store.Record(ctx, fb)
}

func aiDetection() detections.Detection {
	d := sampleDetection()
	d.Verdict = fusion.VerdictAI
	d.Features = evidence.New()
	d.Features.Artifacts.Edge = 1
	return d
}

func openReliability(t *testing.T) reliability.Store {
	t.Helper()
	s, err := reliability.OpenBadger("", slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func edgeCounts(t *testing.T, s reliability.Store) (correct, incorrect float64) {
	t.Helper()
	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	for _, r := range stats {
		if r.Metric == evidence.MetricEdge {
			return r.CorrectCount, r.IncorrectCount
		}
	}
	return 0, 0
}

func TestFeedbackCountersFollowStoredLabel(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)
	d := aiDetection()
	c := newClaims(d)
	store := openReliability(t)

	labels := []string{"AI", "REAL", "AI", "REAL"}
	results := make([]*detections.FeedbackResult, len(labels))

	var wg sync.WaitGroup
	for i, label := range labels {
		wg.Go(func() {
			r, err := detections.ApplyFeedback(ctx, c.claim, store, logger, d.ID,
				detections.FeedbackCommand{UserLabel: label})
			if err != nil {
				t.Errorf("feedback %s: %v", label, err)
				return
			}
			results[i] = r
		})
	}
	wg.Wait()

	applied := 0
	for _, r := range results {
		if r != nil && r.Applied {
			applied++
		}
	}
	if applied != 1 {
		t.Errorf("applied = %d, want exactly 1", applied)
	}

	correct, incorrect := edgeCounts(t, store)
	switch c.stored[d.ID].UserLabel {
	case "AI":
		if correct != 1 || incorrect != 0 {
			t.Errorf("stored AI but counts = %v/%v, want 1/0", correct, incorrect)
		}
	case "REAL":
		if correct != 0 || incorrect != 1 {
			t.Errorf("stored REAL but counts = %v/%v, want 0/1", correct, incorrect)
		}
	default:
		t.Fatalf("stored label = %q", c.stored[d.ID].UserLabel)
	}
}

func TestFeedbackRetryAppliesStoredLabel(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)
	d := aiDetection()
	c := newClaims(d)
	inner := openReliability(t)
	store := &failOnceStore{Store: inner}

	_, err := detections.ApplyFeedback(ctx, c.claim, store, logger, d.ID,
		detections.FeedbackCommand{UserLabel: "REAL"})
	if err == nil {
		t.Fatal("expected the first record to fail")
	}

	r, err := detections.ApplyFeedback(ctx, c.claim, store, logger, d.ID,
		detections.FeedbackCommand{UserLabel: "AI"})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !r.Applied {
		t.Error("retry should apply the stored feedback")
	}

	correct, incorrect := edgeCounts(t, inner)
	if correct != 0 || incorrect != 1 {
		t.Errorf("counts = %v/%v, want 0/1 from the stored REAL label", correct, incorrect)
	}

	r, err = detections.ApplyFeedback(ctx, c.claim, store, logger, d.ID,
		detections.FeedbackCommand{UserLabel: "AI"})
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if r.Applied {
		t.Error("repeat should not apply twice")
	}
}

func TestFeedbackUnknownDetection(t *testing.T) {
	c := newClaims(aiDetection())
	store := openReliability(t)

	_, err := detections.ApplyFeedback(context.Background(), c.claim, store,
		slog.New(slog.DiscardHandler), uuid.New(), detections.FeedbackCommand{UserLabel: "AI"})
	if !errors.Is(err, detections.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}

	if correct, incorrect := edgeCounts(t, store); correct != 0 || incorrect != 0 {
		t.Errorf("counts changed: %v/%v", correct, incorrect)
	}
}
