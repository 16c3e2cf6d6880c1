package fusion

import (
	"encoding/json"
	"fmt"
)

// Verdict is the discrete decision for one analysis.
type Verdict string

const (
	VerdictAI      Verdict = "AI"
	VerdictReal    Verdict = "REAL"
	VerdictUnsure  Verdict = "UNSURE"
	VerdictAbstain Verdict = "ABSTAIN"
)

// Validate returns an error for any value outside the four verdicts.
func (v Verdict) Validate() error {
	switch v {
	case VerdictAI, VerdictReal, VerdictUnsure, VerdictAbstain:
		return nil
	}
	return fmt.Errorf("unknown verdict %q", string(v))
}

// UnmarshalJSON rejects unknown verdicts.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if err := Verdict(s).Validate(); err != nil {
		return err
	}
	*v = Verdict(s)
	return nil
}

// Category classifies which direction a metric pushes the probability.
type Category string

const (
	CategoryAI      Category = "ai_evidence"
	CategoryReal    Category = "real_evidence"
	CategoryNeutral Category = "neutral"
)

// OverrideKind names a rule that changed the probability outside the weighted mean.
type OverrideKind string

const (
	OverrideHardEvidence OverrideKind = "hard_evidence"
	OverrideRealEvidence OverrideKind = "real_evidence_override"
	OverrideIndependence OverrideKind = "independence_cap"
	OverrideLowQuality   OverrideKind = "low_quality_cap"
)

// Override records a rule that fired and what triggered it.
type Override struct {
	Kind   OverrideKind `json:"kind"`
	Detail string       `json:"detail"`
	Before float64      `json:"before"`
	After  float64      `json:"after"`
}

// Reason is one human-readable explanation entry.
type Reason struct {
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"`
	Detail     string  `json:"detail"`
	Confidence float64 `json:"confidence"`
}

// MetricScore is a single catalogue contribution as scored for one bundle.
// Raw is the extractor value; Score is Raw oriented toward AI generation
// (inverted for real-evidence metrics).
type MetricScore struct {
	Name     string   `json:"name"`
	Raw      float64  `json:"raw"`
	Score    float64  `json:"score"`
	Weight   float64  `json:"weight"`
	Category Category `json:"category"`
}

// Result is the outcome of one evaluation. It is never mutated after Evaluate returns.
type Result struct {
	Probability       float64       `json:"probability"`
	Verdict           Verdict       `json:"verdict"`
	Reasons           []Reason      `json:"reasons"`
	Overrides         []Override    `json:"overrides"`
	Metrics           []MetricScore `json:"metrics"`
	RawProbability    float64       `json:"raw_probability"`
	Estimator         string        `json:"estimator"`
	RealEvidenceCount int           `json:"real_evidence_count"`
	StrongBranches    int           `json:"strong_branches"`
}

// HasOverride reports whether an override of the given kind fired.
func (r Result) HasOverride(kind OverrideKind) bool {
	for _, o := range r.Overrides {
		if o.Kind == kind {
			return true
		}
	}
	return false
}
