package fusion

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// Explainer turns metrics and fired overrides into ranked reasons.
type Explainer struct {
	cfg *Config
}

// NewExplainer creates an Explainer. cfg must be finalized.
func NewExplainer(cfg *Config) *Explainer {
	return &Explainer{cfg: cfg}
}

// Explain returns override reasons first, in the order they fired, followed
// by one reason per metric whose raw value exceeds NotableScore sorted by
// weight descending. The list is truncated to MaxReasons.
func (e *Explainer) Explain(metrics []MetricScore, prob float64, overrides []Override) []Reason {
	reasons := make([]Reason, 0, e.cfg.MaxReasons)

	for _, o := range overrides {
		reasons = append(reasons, Reason{
			Name:       string(o.Kind),
			Weight:     math.Abs(o.After - o.Before),
			Detail:     o.Detail,
			Confidence: prob,
		})
	}

	notable := make([]Reason, 0, len(metrics))
	for _, m := range metrics {
		if m.Raw <= e.cfg.NotableScore {
			continue
		}
		notable = append(notable, Reason{
			Name:       m.Name,
			Weight:     m.Weight,
			Detail:     metricDetail(m),
			Confidence: m.Raw,
		})
	}

	slices.SortStableFunc(notable, func(a, b Reason) int {
		return cmp.Compare(b.Weight, a.Weight)
	})

	reasons = append(reasons, notable...)
	if len(reasons) > e.cfg.MaxReasons {
		reasons = reasons[:e.cfg.MaxReasons]
	}
	return reasons
}

func metricDetail(m MetricScore) string {
	label := DisplayName(m.Name)
	if m.Category == CategoryReal {
		return fmt.Sprintf("%s consistent with authentic capture (%.2f)", label, m.Raw)
	}
	return fmt.Sprintf("%s indicates generation artifacts (%.2f)", label, m.Raw)
}
