// Package reliability learns a per-metric weight from user feedback.
// Each metric accumulates fractional correct and incorrect counts; the weight
// is a Laplace-smoothed agreement rate scaled by sample volume and clamped to
// [MinWeight, MaxWeight]. Counts are only ever incremented.
package reliability

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
)

// Weight bounds and the prior returned for metrics without feedback.
const (
	MinWeight     = 0.3
	MaxWeight     = 2.2
	NeutralWeight = 1.0
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("reliability store closed")

// Reliability is the accumulated feedback for one metric.
type Reliability struct {
	Metric         string  `json:"metric"`
	CorrectCount   float64 `json:"correct_count"`
	IncorrectCount float64 `json:"incorrect_count"`
	Weight         float64 `json:"weight"`
}

// Feedback is one user correction applied to the metrics that contributed
// to a detection. Contributions are clamped to [0,1] when recorded.
type Feedback struct {
	DetectionID   uuid.UUID
	Contributions map[string]float64
	Correct       bool
}

// Store persists reliability counts. Record applies a Feedback at most once
// per DetectionID and reports whether it was applied. Weights returns a
// consistent snapshot even while a Record is in flight.
type Store interface {
	Weights(ctx context.Context) (map[string]float64, error)
	Stats(ctx context.Context) ([]Reliability, error)
	Record(ctx context.Context, fb Feedback) (bool, error)
	Close() error
}

// Weight derives a metric weight from its feedback counts.
func Weight(correct, incorrect float64) float64 {
	total := correct + incorrect
	if total <= 0 {
		return NeutralWeight
	}

	r := (correct + 1) / (total + 2)
	logFactor := clamp(0.5+0.5*math.Log10(total+10)/math.Log10(100), 0.5, 1.5)
	delta := (r - 0.5) * 2

	return clamp(1+delta*logFactor, MinWeight, MaxWeight)
}

// NewReliability builds a Reliability with its derived weight.
func NewReliability(metric string, correct, incorrect float64) Reliability {
	return Reliability{
		Metric:         metric,
		CorrectCount:   correct,
		IncorrectCount: incorrect,
		Weight:         Weight(correct, incorrect),
	}
}

// increments splits contributions into correct and incorrect deltas,
// dropping non-positive contributions.
func increments(fb Feedback) map[string][2]float64 {
	out := make(map[string][2]float64, len(fb.Contributions))
	for metric, c := range fb.Contributions {
		if math.IsNaN(c) {
			continue
		}
		c = clamp(c, 0, 1)
		if c == 0 || metric == "" {
			continue
		}
		if fb.Correct {
			out[metric] = [2]float64{c, 0}
		} else {
			out[metric] = [2]float64{0, c}
		}
	}
	return out
}

func weights(stats []Reliability) map[string]float64 {
	w := make(map[string]float64, len(stats))
	for _, s := range stats {
		w[s.Metric] = s.Weight
	}
	return w
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
