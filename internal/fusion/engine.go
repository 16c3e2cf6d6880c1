// Package fusion combines forensic evidence into a calibrated probability of
// AI generation, a verdict, and ranked reasons.
//
// Evaluation is a fixed pipeline: the catalogue is scored with adaptive
// weights, an Estimator turns the scores into a raw probability, the
// Adjuster applies categorical evidence in log-odds space, the Policy
// enforces caps and picks a verdict, and the Explainer ranks reasons.
// The engine is stateless; adaptive weights come from a WeightSource.
package fusion

import (
	"context"
	"log/slog"

	"github.com/JaimeStill/verity/internal/evidence"
)

// WeightSource supplies adaptive metric weights. Missing metrics weigh 1.0.
type WeightSource interface {
	Weights(ctx context.Context) (map[string]float64, error)
}

// StaticWeights is a fixed WeightSource.
type StaticWeights map[string]float64

// Weights returns the map itself.
func (s StaticWeights) Weights(context.Context) (map[string]float64, error) {
	return s, nil
}

// Engine evaluates evidence bundles.
type Engine struct {
	cfg       Config
	weights   WeightSource
	estimator Estimator
	logger    *slog.Logger

	aggregator *Aggregator
	adjuster   *Adjuster
	policy     *Policy
	explainer  *Explainer
}

// Option configures an Engine.
type Option func(*Engine)

// WithEstimator replaces the rule-based estimator. The rule-based estimator
// is still used whenever the replacement fails.
func WithEstimator(est Estimator) Option {
	return func(e *Engine) {
		if est != nil {
			e.estimator = est
		}
	}
}

// New creates an Engine. cfg must be finalized; a nil weights source means
// every metric weighs 1.0.
func New(cfg Config, weights WeightSource, logger *slog.Logger, opts ...Option) *Engine {
	if weights == nil {
		weights = StaticWeights(nil)
	}

	e := &Engine{
		cfg:     cfg,
		weights: weights,
		logger:  logger.With("system", "fusion"),
	}
	e.aggregator = NewAggregator(&e.cfg)
	e.adjuster = NewAdjuster(&e.cfg)
	e.policy = NewPolicy(&e.cfg)
	e.explainer = NewExplainer(&e.cfg)
	e.estimator = e.aggregator

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate always returns a result. Failures reading weights or from an
// external estimator degrade to neutral weights and the rule-based
// estimator respectively.
func (e *Engine) Evaluate(ctx context.Context, b evidence.Bundle) Result {
	b.Normalize()

	weights, err := e.weights.Weights(ctx)
	if err != nil {
		e.logger.Warn("reliability weights unavailable, using neutral weights", "error", err)
		weights = nil
	}

	metrics := e.aggregator.Score(b, weights)

	estimator := e.estimator
	raw, err := estimator.Estimate(ctx, b, metrics)
	if err != nil {
		e.logger.Warn("estimator failed, falling back to rule-based",
			"estimator", estimator.Name(),
			"error", err,
		)
		estimator = e.aggregator
		raw = Mean(metrics)
	}
	raw = clampProb(raw)

	adj := e.adjuster.Adjust(raw, b)
	dec := e.policy.Decide(adj.Probability, adj.HardEvidence, adj.RealEvidenceCount, b)

	overrides := make([]Override, 0, len(adj.Overrides)+len(dec.Overrides))
	overrides = append(overrides, adj.Overrides...)
	overrides = append(overrides, dec.Overrides...)

	result := Result{
		Probability:       dec.Probability,
		Verdict:           dec.Verdict,
		Reasons:           e.explainer.Explain(metrics, dec.Probability, overrides),
		Overrides:         overrides,
		Metrics:           metrics,
		RawProbability:    raw,
		Estimator:         estimator.Name(),
		RealEvidenceCount: adj.RealEvidenceCount,
		StrongBranches:    dec.StrongBranches,
	}

	e.logger.Debug("evidence evaluated",
		"estimator", result.Estimator,
		"raw", raw,
		"probability", result.Probability,
		"verdict", result.Verdict,
		"hard_evidence", adj.HardEvidence,
		"real_evidence", adj.RealEvidenceCount,
		"strong_branches", dec.StrongBranches,
	)
	return result
}
