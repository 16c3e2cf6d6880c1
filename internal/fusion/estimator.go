package fusion

import (
	"context"

	"github.com/JaimeStill/verity/internal/evidence"
)

// RuleBasedEstimator is the name reported by the Aggregator estimator.
const RuleBasedEstimator = "rule_based"

// Estimator produces the raw probability fed to the logit adjuster.
// Implementations receive the bundle and the weighted catalogue scores and
// must return a value in [0,1]. The Aggregator is the rule-based estimator;
// external calibrated models implement the same contract.
type Estimator interface {
	Name() string
	Estimate(ctx context.Context, b evidence.Bundle, metrics []MetricScore) (float64, error)
}
