package fusion

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/verity/pkg/envvar"
)

// Config holds every threshold, cap and logit bonus used by the engine.
// Zero values are replaced with defaults by Finalize.
type Config struct {
	AIThreshold   float64 `toml:"ai_threshold"`
	RealThreshold float64 `toml:"real_threshold"`
	UnsureLow     float64 `toml:"unsure_low"`
	UnsureHigh    float64 `toml:"unsure_high"`
	AllowAbstain  *bool   `toml:"allow_abstain"`

	HardAIMin float64 `toml:"hard_ai_min"`

	RealOverrideCount   int     `toml:"real_override_count"`
	RealOverrideTrigger float64 `toml:"real_override_trigger"`
	RealOverrideCeiling float64 `toml:"real_override_ceiling"`

	IndependenceCap      float64 `toml:"independence_cap"`
	MinStrongBranches    int     `toml:"min_strong_branches"`
	CapAfterHardEvidence bool    `toml:"cap_after_hard_evidence"`

	LowQualityCap    float64 `toml:"low_quality_cap"`
	LowQualityWeight float64 `toml:"low_quality_weight"`

	NotableScore float64 `toml:"notable_score"`
	MaxReasons   int     `toml:"max_reasons"`

	Bonus Bonus `toml:"bonus"`

	GeneratorKeywords []string `toml:"generator_keywords"`
	KeywordBlacklist  []string `toml:"keyword_blacklist"`

	BaseWeights map[string]float64 `toml:"base_weights"`
}

// Bonus holds the logit-space boosts for categorical AI evidence.
type Bonus struct {
	VerifiedWatermark float64 `toml:"verified_watermark"`
	GenericWatermark  float64 `toml:"generic_watermark"`
	StrongSceneBreak  float64 `toml:"strong_scene_break"`
	SceneBreak        float64 `toml:"scene_break"`
	Anatomy           float64 `toml:"anatomy"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	AIThreshold   string
	RealThreshold string
	UnsureLow     string
	UnsureHigh    string
	AllowAbstain  string
	HardAIMin     string
}

// DefaultConfig returns a finalized config with every default applied.
func DefaultConfig() Config {
	var c Config
	c.loadDefaults()
	return c
}

// Abstain reports whether low quality media may receive an ABSTAIN verdict.
func (c *Config) Abstain() bool {
	return c.AllowAbstain == nil || *c.AllowAbstain
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	mergeFloat(&c.AIThreshold, overlay.AIThreshold)
	mergeFloat(&c.RealThreshold, overlay.RealThreshold)
	mergeFloat(&c.UnsureLow, overlay.UnsureLow)
	mergeFloat(&c.UnsureHigh, overlay.UnsureHigh)
	if overlay.AllowAbstain != nil {
		v := *overlay.AllowAbstain
		c.AllowAbstain = &v
	}
	mergeFloat(&c.HardAIMin, overlay.HardAIMin)
	if overlay.RealOverrideCount != 0 {
		c.RealOverrideCount = overlay.RealOverrideCount
	}
	mergeFloat(&c.RealOverrideTrigger, overlay.RealOverrideTrigger)
	mergeFloat(&c.RealOverrideCeiling, overlay.RealOverrideCeiling)
	mergeFloat(&c.IndependenceCap, overlay.IndependenceCap)
	if overlay.MinStrongBranches != 0 {
		c.MinStrongBranches = overlay.MinStrongBranches
	}
	if overlay.CapAfterHardEvidence {
		c.CapAfterHardEvidence = true
	}
	mergeFloat(&c.LowQualityCap, overlay.LowQualityCap)
	mergeFloat(&c.LowQualityWeight, overlay.LowQualityWeight)
	mergeFloat(&c.NotableScore, overlay.NotableScore)
	if overlay.MaxReasons != 0 {
		c.MaxReasons = overlay.MaxReasons
	}

	mergeFloat(&c.Bonus.VerifiedWatermark, overlay.Bonus.VerifiedWatermark)
	mergeFloat(&c.Bonus.GenericWatermark, overlay.Bonus.GenericWatermark)
	mergeFloat(&c.Bonus.StrongSceneBreak, overlay.Bonus.StrongSceneBreak)
	mergeFloat(&c.Bonus.SceneBreak, overlay.Bonus.SceneBreak)
	mergeFloat(&c.Bonus.Anatomy, overlay.Bonus.Anatomy)

	if overlay.GeneratorKeywords != nil {
		c.GeneratorKeywords = overlay.GeneratorKeywords
	}
	if overlay.KeywordBlacklist != nil {
		c.KeywordBlacklist = overlay.KeywordBlacklist
	}
	if len(overlay.BaseWeights) > 0 {
		if c.BaseWeights == nil {
			c.BaseWeights = make(map[string]float64, len(overlay.BaseWeights))
		}
		for k, v := range overlay.BaseWeights {
			c.BaseWeights[k] = v
		}
	}
}

func (c *Config) loadDefaults() {
	setFloat(&c.AIThreshold, 0.80)
	setFloat(&c.RealThreshold, 0.20)
	setFloat(&c.UnsureLow, 0.40)
	setFloat(&c.UnsureHigh, 0.60)
	setFloat(&c.HardAIMin, 0.95)
	if c.RealOverrideCount == 0 {
		c.RealOverrideCount = 4
	}
	setFloat(&c.RealOverrideTrigger, 0.75)
	setFloat(&c.RealOverrideCeiling, 0.65)
	setFloat(&c.IndependenceCap, 0.90)
	if c.MinStrongBranches == 0 {
		c.MinStrongBranches = 2
	}
	setFloat(&c.LowQualityCap, 0.75)
	setFloat(&c.LowQualityWeight, 0.85)
	setFloat(&c.NotableScore, 0.65)
	if c.MaxReasons == 0 {
		c.MaxReasons = 5
	}

	setFloat(&c.Bonus.VerifiedWatermark, 6.0)
	setFloat(&c.Bonus.GenericWatermark, 2.0)
	setFloat(&c.Bonus.StrongSceneBreak, 5.0)
	setFloat(&c.Bonus.SceneBreak, 2.5)
	setFloat(&c.Bonus.Anatomy, 1.45)

	if len(c.GeneratorKeywords) == 0 {
		c.GeneratorKeywords = []string{"sora", "sora.ai", "veo", "runway", "imagen"}
	}
	if c.KeywordBlacklist == nil {
		c.KeywordBlacklist = []string{"image", "imagine", "imagenes", "imaging"}
	}
}

func (c *Config) loadEnv(env *Env) {
	envvar.Float(env.AIThreshold, &c.AIThreshold)
	envvar.Float(env.RealThreshold, &c.RealThreshold)
	envvar.Float(env.UnsureLow, &c.UnsureLow)
	envvar.Float(env.UnsureHigh, &c.UnsureHigh)
	envvar.Float(env.HardAIMin, &c.HardAIMin)
	envvar.BoolPtr(env.AllowAbstain, &c.AllowAbstain)
}

func (c *Config) validate() error {
	probs := []struct {
		name string
		v    float64
	}{
		{"ai_threshold", c.AIThreshold},
		{"real_threshold", c.RealThreshold},
		{"unsure_low", c.UnsureLow},
		{"unsure_high", c.UnsureHigh},
		{"hard_ai_min", c.HardAIMin},
		{"real_override_trigger", c.RealOverrideTrigger},
		{"real_override_ceiling", c.RealOverrideCeiling},
		{"independence_cap", c.IndependenceCap},
		{"low_quality_cap", c.LowQualityCap},
		{"low_quality_weight", c.LowQualityWeight},
		{"notable_score", c.NotableScore},
	}
	for _, p := range probs {
		if p.v <= 0 || p.v > 1 {
			return fmt.Errorf("%s must be in (0,1]: %v", p.name, p.v)
		}
	}

	if c.RealThreshold >= c.AIThreshold {
		return fmt.Errorf("real_threshold (%v) must be below ai_threshold (%v)", c.RealThreshold, c.AIThreshold)
	}
	if c.UnsureLow > c.UnsureHigh {
		return fmt.Errorf("unsure_low (%v) cannot exceed unsure_high (%v)", c.UnsureLow, c.UnsureHigh)
	}
	if c.MaxReasons < 1 {
		return fmt.Errorf("max_reasons must be positive")
	}
	for k, v := range c.BaseWeights {
		if v < 0 {
			return fmt.Errorf("base weight for %s cannot be negative", k)
		}
	}
	for i, kw := range c.GeneratorKeywords {
		c.GeneratorKeywords[i] = strings.ToLower(strings.TrimSpace(kw))
	}
	for i, kw := range c.KeywordBlacklist {
		c.KeywordBlacklist[i] = strings.ToLower(strings.TrimSpace(kw))
	}
	return nil
}

func setFloat(dst *float64, def float64) {
	if *dst == 0 {
		*dst = def
	}
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}
