package fusion

import (
	"context"

	"github.com/JaimeStill/verity/internal/evidence"
)

const weightEpsilon = 1e-9

// Aggregator combines the catalogue into a single pre-calibration
// probability. It is also the rule-based Estimator.
type Aggregator struct {
	cfg *Config
}

// NewAggregator creates an Aggregator. cfg must be finalized.
func NewAggregator(cfg *Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// FlowScale attenuates artifact heuristics on smooth footage, where they
// are known to fire on compression and overlay effects.
func FlowScale(oddity float64) float64 {
	switch {
	case oddity <= 0.15:
		return 0.2
	case oddity <= 0.25:
		return 0.4
	case oddity <= 0.35:
		return 0.7
	}
	return 1.0
}

// Score evaluates every applicable catalogue entry against b. Each weight is
// base × flow scale (for artifact and codec entries) × adaptive weight, then
// × LowQualityWeight when quality is low. Metrics missing from weights use 1.0.
func (a *Aggregator) Score(b evidence.Bundle, weights map[string]float64) []MetricScore {
	scale := FlowScale(b.Temporal.Flow.Oddity)
	low := b.LowQuality()

	out := make([]MetricScore, 0, len(catalogue))
	for _, c := range catalogue {
		if !c.applies(b) {
			continue
		}

		w := a.base(c)
		if c.flowScaled {
			w *= scale
		}
		if adaptive, ok := weights[c.name]; ok {
			w *= adaptive
		}
		if low {
			w *= a.cfg.LowQualityWeight
		}

		out = append(out, MetricScore{
			Name:     c.name,
			Raw:      c.raw(b),
			Score:    c.score(b),
			Weight:   w,
			Category: c.category,
		})
	}
	return out
}

// Aggregate returns the weighted arithmetic mean of the catalogue scores,
// or 0.5 when no weight applies.
func (a *Aggregator) Aggregate(b evidence.Bundle, weights map[string]float64) float64 {
	return Mean(a.Score(b, weights))
}

// Name identifies the rule-based estimator.
func (a *Aggregator) Name() string {
	return RuleBasedEstimator
}

// Estimate implements Estimator as the weighted mean of metrics.
func (a *Aggregator) Estimate(_ context.Context, _ evidence.Bundle, metrics []MetricScore) (float64, error) {
	return Mean(metrics), nil
}

// Mean is the weighted arithmetic mean of metric scores.
func Mean(metrics []MetricScore) float64 {
	var sum, total float64
	for _, m := range metrics {
		if m.Weight <= 0 {
			continue
		}
		sum += m.Weight * m.Score
		total += m.Weight
	}
	if total < weightEpsilon {
		return evidence.Neutral
	}
	return min(max(sum/total, 0), 1)
}

func (a *Aggregator) base(c contribution) float64 {
	if w, ok := a.cfg.BaseWeights[c.name]; ok {
		return w
	}
	return c.base
}
