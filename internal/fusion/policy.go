package fusion

import (
	"fmt"
	"math"

	"github.com/JaimeStill/verity/internal/evidence"
)

// Strong branch thresholds.
const (
	strongWatermarkMin = 0.75
	strongSceneConfMin = 0.80
	strongArtifactMin  = 0.80
	strongFaceMin      = 0.85
	strongTemporalMin  = 0.80
)

// Decision is the policy outcome: the final probability and its verdict.
type Decision struct {
	Probability    float64
	Verdict        Verdict
	StrongBranches int
	Overrides      []Override
}

// Policy enforces caps and maps probabilities to verdicts.
type Policy struct {
	cfg *Config
}

// NewPolicy creates a Policy. cfg must be finalized.
func NewPolicy(cfg *Config) *Policy {
	return &Policy{cfg: cfg}
}

// StrongBranches counts independent signal categories that individually
// carry strong AI evidence.
func StrongBranches(b evidence.Bundle) int {
	n := 0
	w := b.Watermark
	if w.Detected && w.Persistent && w.Corner && w.Confidence >= strongWatermarkMin {
		n++
	}
	if b.SceneLogic.Flag && b.SceneLogic.Confidence >= strongSceneConfMin {
		n++
	}
	if b.ArtifactMax() >= strongArtifactMin {
		n++
	}
	if b.FaceDynamicsMax() >= strongFaceMin {
		n++
	}
	if b.Temporal.Flow.Oddity >= strongTemporalMin || b.Temporal.RPPG.Score >= strongTemporalMin {
		n++
	}
	return n
}

// Decide applies the real-evidence override, the independence rule and the
// low-quality cap, then maps the result to a verdict. Hard evidence bypasses
// all three unless CapAfterHardEvidence is set, in which case only the
// independence rule is re-applied.
func (p *Policy) Decide(prob float64, hardEvidence bool, realCount int, b evidence.Bundle) Decision {
	d := Decision{
		Probability:    clampProb(prob),
		StrongBranches: StrongBranches(b),
	}

	apply := func(kind OverrideKind, to float64, detail string) {
		d.Overrides = append(d.Overrides, Override{
			Kind:   kind,
			Detail: detail,
			Before: d.Probability,
			After:  to,
		})
		d.Probability = to
	}

	if !hardEvidence && realCount >= p.cfg.RealOverrideCount && d.Probability > p.cfg.RealOverrideTrigger {
		apply(OverrideRealEvidence, p.cfg.RealOverrideCeiling, fmt.Sprintf(
			"%d independent real-world signals corroborate authenticity", realCount,
		))
	}

	if (!hardEvidence || p.cfg.CapAfterHardEvidence) &&
		d.Probability > p.cfg.IndependenceCap &&
		d.StrongBranches < p.cfg.MinStrongBranches {
		apply(OverrideIndependence, p.cfg.IndependenceCap, fmt.Sprintf(
			"only %d strong evidence branch(es); %d required for higher certainty",
			d.StrongBranches, p.cfg.MinStrongBranches,
		))
	}

	if !hardEvidence && b.LowQuality() && d.StrongBranches <= 1 && d.Probability > p.cfg.LowQualityCap {
		apply(OverrideLowQuality, p.cfg.LowQualityCap, fmt.Sprintf(
			"low quality media with %d strong evidence branch(es)", d.StrongBranches,
		))
	}

	d.Verdict = p.Classify(d.Probability, b.LowQuality())
	return d
}

// Classify maps a final probability to a verdict.
func (p *Policy) Classify(prob float64, lowQuality bool) Verdict {
	inBand := prob >= p.cfg.UnsureLow && prob <= p.cfg.UnsureHigh

	switch {
	case lowQuality && p.cfg.Abstain() && inBand:
		return VerdictAbstain
	case prob >= p.cfg.AIThreshold:
		return VerdictAI
	case prob <= p.cfg.RealThreshold:
		return VerdictReal
	case inBand:
		return VerdictUnsure
	case prob > 0.5:
		return VerdictAI
	}
	return VerdictReal
}

func clampProb(p float64) float64 {
	if math.IsNaN(p) {
		return evidence.Neutral
	}
	return min(max(p, 0), 1)
}
