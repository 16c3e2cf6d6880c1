// Package evidence defines the typed forensic evidence bundle handed to the
// fusion engine by feature extractors. Every score is optional on the wire;
// absent values take neutral defaults so downstream scoring never has to
// special-case missing data.
package evidence

import (
	"math"
	"slices"
)

// Neutral is the default value for any absent evidence score.
const Neutral = 0.5

// Quality thresholds used to derive a status when the extractor did not supply one.
const (
	BlurMin    = 60.0
	BrisqueMax = 45.0
	BitrateMin = 200000.0
)

// Status is the overall media quality classification.
type Status string

const (
	StatusGood Status = "good"
	StatusLow  Status = "low"
)

// Quality carries the quality gate output. Metrics are pointers so an absent
// metric does not count against the media when the status is derived.
type Quality struct {
	Status  Status   `json:"status,omitempty" yaml:"status,omitempty" validate:"omitempty,oneof=good low"`
	Blur    *float64 `json:"blur,omitempty" yaml:"blur,omitempty" validate:"omitempty,gte=0"`
	Brisque *float64 `json:"brisque,omitempty" yaml:"brisque,omitempty" validate:"omitempty,gte=0"`
	Bitrate *float64 `json:"bitrate,omitempty" yaml:"bitrate,omitempty" validate:"omitempty,gte=0"`
}

// Watermark carries the OCR watermark reader output.
type Watermark struct {
	Detected      bool    `json:"detected" yaml:"detected"`
	Confidence    float64 `json:"confidence" yaml:"confidence"`
	Persistent    bool    `json:"persistent" yaml:"persistent"`
	Corner        bool    `json:"corner" yaml:"corner"`
	GeneratorHint bool    `json:"generator_hint" yaml:"generator_hint"`
	Text          string  `json:"watermark_text" yaml:"watermark_text"`
}

// Face carries the face tracker output.
type Face struct {
	Detected  bool    `json:"detected" yaml:"detected"`
	NumTracks int     `json:"num_tracks" yaml:"num_tracks" validate:"gte=0"`
	FakeScore float64 `json:"fake_score" yaml:"fake_score"`
}

// Forensics carries sensor-noise and compression forensics.
type Forensics struct {
	PRNU    float64 `json:"prnu_score" yaml:"prnu_score"`
	Flicker float64 `json:"flicker_score" yaml:"flicker_score"`
	Codec   float64 `json:"codec_score" yaml:"codec_score"`
}

// FaceDynamics carries per-feature facial motion anomaly scores.
type FaceDynamics struct {
	MouthExaggeration float64 `json:"mouth_exaggeration_score" yaml:"mouth_exaggeration_score"`
	MouthStatic       float64 `json:"mouth_static_score" yaml:"mouth_static_score"`
	EyeBlink          float64 `json:"eye_blink_anomaly" yaml:"eye_blink_anomaly"`
	FaceSymmetry      float64 `json:"face_symmetry_drift" yaml:"face_symmetry_drift"`
}

// Artifacts carries visual artifact heuristics.
type Artifacts struct {
	Edge    float64 `json:"edge_artifact_score" yaml:"edge_artifact_score"`
	Texture float64 `json:"texture_inconsistency" yaml:"texture_inconsistency"`
	Color   float64 `json:"color_anomaly_score" yaml:"color_anomaly_score"`
	Freq    float64 `json:"freq_artifact_score" yaml:"freq_artifact_score"`
}

// Flow carries the optical flow oddity score.
type Flow struct {
	Oddity float64 `json:"oddity_score" yaml:"oddity_score"`
}

// RPPG carries the remote photoplethysmography anomaly score.
type RPPG struct {
	Score float64 `json:"rppg_score" yaml:"rppg_score"`
}

// Temporal groups motion and physiological coherence signals.
type Temporal struct {
	Flow Flow `json:"flow" yaml:"flow"`
	RPPG RPPG `json:"rppg" yaml:"rppg"`
}

// SceneLogic carries the scene coherence reasoner output.
type SceneLogic struct {
	Flag        bool    `json:"flag" yaml:"flag"`
	Incoherence float64 `json:"incoherence_score" yaml:"incoherence_score"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
}

// AV carries audio/visual synchronisation.
type AV struct {
	Sync float64 `json:"sync_score" yaml:"sync_score"`
}

// Bundle is the full set of forensic evidence for one media analysis.
// Construct with New (or decode into a bundle returned by New) so absent
// fields keep their neutral defaults, then call Normalize.
type Bundle struct {
	Quality      Quality      `json:"quality" yaml:"quality"`
	Watermark    Watermark    `json:"watermark" yaml:"watermark"`
	Face         Face         `json:"face" yaml:"face"`
	Forensics    Forensics    `json:"forensics" yaml:"forensics"`
	FaceDynamics FaceDynamics `json:"face_dynamics" yaml:"face_dynamics"`
	Artifacts    Artifacts    `json:"artifact_analysis" yaml:"artifact_analysis"`
	Temporal     Temporal     `json:"temporal" yaml:"temporal"`
	SceneLogic   SceneLogic   `json:"scene_logic" yaml:"scene_logic"`
	AV           AV           `json:"av_analysis" yaml:"av_analysis"`
}

// New returns a bundle with every score at its neutral default and every flag false.
func New() Bundle {
	return Bundle{
		Watermark:    Watermark{Confidence: Neutral},
		Face:         Face{FakeScore: Neutral},
		Forensics:    Forensics{PRNU: Neutral, Flicker: Neutral, Codec: Neutral},
		FaceDynamics: FaceDynamics{Neutral, Neutral, Neutral, Neutral},
		Artifacts:    Artifacts{Neutral, Neutral, Neutral, Neutral},
		Temporal: Temporal{
			Flow: Flow{Oddity: Neutral},
			RPPG: RPPG{Score: Neutral},
		},
		SceneLogic: SceneLogic{Incoherence: Neutral, Confidence: Neutral},
		AV:         AV{Sync: Neutral},
	}
}

// Normalize clamps every score into [0,1], replaces NaN with the neutral
// default, and derives the quality status when it was not supplied.
func (b *Bundle) Normalize() {
	for _, p := range b.scores() {
		*p = unit(*p)
	}
	if b.Face.NumTracks < 0 {
		b.Face.NumTracks = 0
	}
	if b.Quality.Status == "" {
		b.Quality.Status = b.Quality.derive()
	}
}

// LowQuality reports whether the quality gate marked the media as low quality.
func (b Bundle) LowQuality() bool {
	return b.Quality.Status == StatusLow
}

// FaceDynamicsMax returns the highest facial dynamics anomaly score.
func (b Bundle) FaceDynamicsMax() float64 {
	d := b.FaceDynamics
	return slices.Max([]float64{d.MouthExaggeration, d.MouthStatic, d.EyeBlink, d.FaceSymmetry})
}

// ArtifactMax returns the highest visual artifact score.
func (b Bundle) ArtifactMax() float64 {
	a := b.Artifacts
	return slices.Max([]float64{a.Edge, a.Texture, a.Color, a.Freq})
}

func (b *Bundle) scores() []*float64 {
	return []*float64{
		&b.Watermark.Confidence,
		&b.Face.FakeScore,
		&b.Forensics.PRNU,
		&b.Forensics.Flicker,
		&b.Forensics.Codec,
		&b.FaceDynamics.MouthExaggeration,
		&b.FaceDynamics.MouthStatic,
		&b.FaceDynamics.EyeBlink,
		&b.FaceDynamics.FaceSymmetry,
		&b.Artifacts.Edge,
		&b.Artifacts.Texture,
		&b.Artifacts.Color,
		&b.Artifacts.Freq,
		&b.Temporal.Flow.Oddity,
		&b.Temporal.RPPG.Score,
		&b.SceneLogic.Incoherence,
		&b.SceneLogic.Confidence,
		&b.AV.Sync,
	}
}

func (q Quality) derive() Status {
	if q.Blur != nil && *q.Blur < BlurMin {
		return StatusLow
	}
	if q.Brisque != nil && *q.Brisque > BrisqueMax {
		return StatusLow
	}
	if q.Bitrate != nil && *q.Bitrate < BitrateMin {
		return StatusLow
	}
	return StatusGood
}

func unit(v float64) float64 {
	if math.IsNaN(v) {
		return Neutral
	}
	return min(max(v, 0), 1)
}
