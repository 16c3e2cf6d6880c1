package fusion

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/JaimeStill/verity/internal/evidence"
)

const probEpsilon = 1e-6

// Real-evidence calming: each entry subtracts a fixed amount of log-odds
// when a corroborating real-world signal is present.
const (
	calmPRNU  = 0.6
	calmSync  = 0.3
	calmRPPG  = 0.3
	calmFlow  = 0.3
	calmScene = 0.15

	prnuRealMin      = 0.70
	syncRealMin      = 0.80
	rppgRealMax      = 0.25
	flowRealMax      = 0.20
	sceneCoherentMax = 0.35
)

// Categorical evidence thresholds.
const (
	verifiedWatermarkMin = 0.75
	genericWatermarkMin  = 0.60
	strongSceneMin       = 0.80
	anatomyMin           = 0.90
)

// Adjustment is the outcome of logit-space evidence combination.
type Adjustment struct {
	Probability       float64
	HardEvidence      bool
	RealEvidenceCount int
	Signals           []string
	Overrides         []Override
}

// Adjuster applies fixed-magnitude log-odds boosts and penalties.
type Adjuster struct {
	cfg *Config
}

// NewAdjuster creates an Adjuster. cfg must be finalized.
func NewAdjuster(cfg *Config) *Adjuster {
	return &Adjuster{cfg: cfg}
}

// Logit converts p to log-odds after clamping it away from 0 and 1.
func Logit(p float64) float64 {
	if math.IsNaN(p) {
		p = evidence.Neutral
	}
	p = min(max(p, probEpsilon), 1-probEpsilon)
	return math.Log(p / (1 - p))
}

// Sigmoid converts log-odds back to a probability.
func Sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// Adjust combines p with categorical evidence in log-odds space. A verified
// generator watermark or a strong scene-logic break is hard evidence and
// forces the result to at least HardAIMin.
func (a *Adjuster) Adjust(p float64, b evidence.Bundle) Adjustment {
	adj := Adjustment{}
	z := Logit(p)

	calm := func(signal string, delta float64) {
		z -= delta
		adj.RealEvidenceCount++
		adj.Signals = append(adj.Signals, signal)
	}
	boost := func(signal string, delta float64) {
		z += delta
		adj.Signals = append(adj.Signals, signal)
	}

	if b.Forensics.PRNU >= prnuRealMin {
		calm("sensor_pattern", calmPRNU)
	}
	if b.AV.Sync >= syncRealMin {
		calm("av_sync", calmSync)
	}
	if b.Temporal.RPPG.Score <= rppgRealMax {
		calm("physiological_coherence", calmRPPG)
	}
	if b.Temporal.Flow.Oddity <= flowRealMax {
		calm("smooth_motion", calmFlow)
	}
	if b.SceneLogic.Incoherence <= sceneCoherentMax && !b.SceneLogic.Flag {
		calm("scene_coherence", calmScene)
	}

	verified := a.VerifiedWatermark(b.Watermark)
	switch {
	case verified:
		boost("verified_watermark", a.cfg.Bonus.VerifiedWatermark)
	case b.Watermark.Detected && b.Watermark.Confidence >= genericWatermarkMin:
		boost("generic_watermark", a.cfg.Bonus.GenericWatermark)
	}

	strongScene := StrongSceneBreak(b.SceneLogic)
	switch {
	case strongScene:
		boost("strong_scene_break", a.cfg.Bonus.StrongSceneBreak)
	case b.SceneLogic.Flag:
		boost("scene_break", a.cfg.Bonus.SceneBreak)
	}

	if b.FaceDynamicsMax() >= anatomyMin {
		boost("anatomy_anomaly", a.cfg.Bonus.Anatomy)
	}

	adj.Probability = Sigmoid(z)

	if verified || strongScene {
		before := adj.Probability
		adj.Probability = max(adj.Probability, a.cfg.HardAIMin)
		adj.HardEvidence = true
		adj.Overrides = append(adj.Overrides, Override{
			Kind:   OverrideHardEvidence,
			Detail: hardEvidenceDetail(b, verified, strongScene),
			Before: before,
			After:  adj.Probability,
		})
	}

	return adj
}

// VerifiedWatermark reports whether w is a persistent corner watermark with
// confidence of at least 0.75 whose text names a known generator.
func (a *Adjuster) VerifiedWatermark(w evidence.Watermark) bool {
	return w.Detected &&
		w.Persistent &&
		w.Corner &&
		w.Confidence >= verifiedWatermarkMin &&
		MatchGenerator(w.Text, a.cfg.GeneratorKeywords, a.cfg.KeywordBlacklist) != ""
}

// StrongSceneBreak reports a flagged scene-logic break with both incoherence
// and confidence of at least 0.8.
func StrongSceneBreak(s evidence.SceneLogic) bool {
	return s.Flag && s.Incoherence >= strongSceneMin && s.Confidence >= strongSceneMin
}

// MatchGenerator returns the first generator keyword matching a whole token
// of text, or "" if none does. Blacklisted tokens never match, so words such
// as "imaging" cannot be mistaken for a generator name.
func MatchGenerator(text string, keywords, blacklist []string) string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.'
	})

	for _, tok := range tokens {
		tok = strings.Trim(tok, ".")
		if tok == "" || slices.Contains(blacklist, tok) {
			continue
		}
		for _, kw := range keywords {
			if tok == kw || strings.HasPrefix(tok, kw+".") {
				return kw
			}
		}
	}
	return ""
}

func hardEvidenceDetail(b evidence.Bundle, verified, strongScene bool) string {
	var parts []string
	if verified {
		parts = append(parts, fmt.Sprintf(
			"verified generator watermark %q (confidence %.2f)",
			b.Watermark.Text, b.Watermark.Confidence,
		))
	}
	if strongScene {
		parts = append(parts, fmt.Sprintf(
			"strong scene-logic break (incoherence %.2f, confidence %.2f)",
			b.SceneLogic.Incoherence, b.SceneLogic.Confidence,
		))
	}
	return strings.Join(parts, "; ")
}
