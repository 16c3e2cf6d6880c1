package fusion

import "github.com/JaimeStill/verity/internal/evidence"

// contribution is one entry of the fixed aggregation catalogue. score returns
// the AI-direction score in [0,1] and whether the contribution applies to the
// bundle at all; raw returns the extractor value the score was derived from.
type contribution struct {
	name       string
	base       float64
	flowScaled bool
	category   Category
	display    string
	raw        func(evidence.Bundle) float64
	applies    func(evidence.Bundle) bool
	inverted   bool
}

func (c contribution) score(b evidence.Bundle) float64 {
	if c.inverted {
		return 1 - c.raw(b)
	}
	return c.raw(b)
}

func always(evidence.Bundle) bool { return true }

var catalogue = []contribution{
	{
		name: evidence.MetricWatermark, base: 1.0, category: CategoryAI,
		display: "Watermark Detection",
		raw:     func(b evidence.Bundle) float64 { return b.Watermark.Confidence },
		applies: func(b evidence.Bundle) bool { return b.Watermark.Detected },
	},
	{
		name: evidence.MetricFaceAnalysis, base: 0.8, category: CategoryAI,
		display: "Face Analysis",
		raw:     func(b evidence.Bundle) float64 { return b.Face.FakeScore },
		applies: func(b evidence.Bundle) bool { return b.Face.Detected },
	},
	{
		name: evidence.MetricPRNU, base: 0.9, category: CategoryReal, inverted: true,
		display: "Sensor Pattern Analysis",
		raw:     func(b evidence.Bundle) float64 { return b.Forensics.PRNU },
		applies: always,
	},
	{
		name: evidence.MetricFlicker, base: 0.6, category: CategoryAI, flowScaled: true,
		display: "Temporal Flicker Analysis",
		raw:     func(b evidence.Bundle) float64 { return b.Forensics.Flicker },
		applies: always,
	},
	{
		name: evidence.MetricCodec, base: 0.5, category: CategoryAI, flowScaled: true,
		display: "Codec Artifacts",
		raw:     func(b evidence.Bundle) float64 { return b.Forensics.Codec },
		applies: always,
	},
	{
		name: evidence.MetricAudioSync, base: 0.6, category: CategoryReal, inverted: true,
		display: "Audio-Visual Sync",
		raw:     func(b evidence.Bundle) float64 { return b.AV.Sync },
		applies: always,
	},
	{
		name: evidence.MetricEdge, base: 0.8, category: CategoryAI, flowScaled: true,
		display: "Edge Artifact Consistency",
		raw:     func(b evidence.Bundle) float64 { return b.Artifacts.Edge },
		applies: always,
	},
	{
		name: evidence.MetricTexture, base: 0.7, category: CategoryAI, flowScaled: true,
		display: "Texture Stability Check",
		raw:     func(b evidence.Bundle) float64 { return b.Artifacts.Texture },
		applies: always,
	},
	{
		name: evidence.MetricColor, base: 0.5, category: CategoryAI, flowScaled: true,
		display: "Color Cohesion",
		raw:     func(b evidence.Bundle) float64 { return b.Artifacts.Color },
		applies: always,
	},
	{
		name: evidence.MetricFreq, base: 0.7, category: CategoryAI, flowScaled: true,
		display: "Frequency Spectrum",
		raw:     func(b evidence.Bundle) float64 { return b.Artifacts.Freq },
		applies: always,
	},
	{
		name: evidence.MetricMouthExaggeration, base: 0.6, category: CategoryAI,
		display: "Mouth Dynamics",
		raw:     func(b evidence.Bundle) float64 { return b.FaceDynamics.MouthExaggeration },
		applies: always,
	},
	{
		name: evidence.MetricMouthStatic, base: 0.5, category: CategoryAI,
		display: "Lip Motion Variability",
		raw:     func(b evidence.Bundle) float64 { return b.FaceDynamics.MouthStatic },
		applies: always,
	},
	{
		name: evidence.MetricEyeBlink, base: 0.6, category: CategoryAI,
		display: "Eye Blink Pattern",
		raw:     func(b evidence.Bundle) float64 { return b.FaceDynamics.EyeBlink },
		applies: always,
	},
	{
		name: evidence.MetricFaceSymmetry, base: 0.5, category: CategoryAI,
		display: "Facial Symmetry Drift",
		raw:     func(b evidence.Bundle) float64 { return b.FaceDynamics.FaceSymmetry },
		applies: always,
	},
	{
		name: evidence.MetricSceneLogic, base: 0.8, category: CategoryAI,
		display: "Scene Logic",
		raw:     func(b evidence.Bundle) float64 { return b.SceneLogic.Incoherence },
		applies: always,
	},
}

// Catalogue returns the names of every aggregated metric in catalogue order.
func Catalogue() []string {
	names := make([]string, len(catalogue))
	for i, c := range catalogue {
		names[i] = c.name
	}
	return names
}

// DisplayName returns the human-readable label for a metric or override.
func DisplayName(name string) string {
	for _, c := range catalogue {
		if c.name == name {
			return c.display
		}
	}
	switch OverrideKind(name) {
	case OverrideHardEvidence:
		return "Hard Evidence"
	case OverrideRealEvidence:
		return "Real-World Corroboration"
	case OverrideIndependence:
		return "Independence Rule"
	case OverrideLowQuality:
		return "Low Quality Cap"
	}
	return name
}
