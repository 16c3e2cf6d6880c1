package evidence

import (
	"slices"
	"strings"
)

// Metric names shared by the fusion catalogue and the reliability store.
const (
	MetricWatermark         = "watermark"
	MetricFaceAnalysis      = "face_analysis"
	MetricPRNU              = "forensics_prnu"
	MetricFlicker           = "forensics_flicker"
	MetricCodec             = "forensics_codec"
	MetricAudioSync         = "audio_sync"
	MetricEdge              = "edge_artifacts"
	MetricTexture           = "texture_inconsistency"
	MetricColor             = "color_anomaly"
	MetricFreq              = "freq_artifacts"
	MetricMouthExaggeration = "mouth_exaggeration"
	MetricMouthStatic       = "mouth_static"
	MetricEyeBlink          = "eye_blink"
	MetricFaceSymmetry      = "face_symmetry"
	MetricSceneLogic        = "scene_logic"
	MetricLowQuality        = "low_quality_flag"
)

const (
	// MaxNotesLength bounds stored feedback notes.
	MaxNotesLength = 500
	// NoteBoost is added to a metric's contribution when feedback notes mention it.
	NoteBoost = 0.15
	// LowQualityContribution is the importance of the quality flag on low quality media.
	LowQualityContribution = 0.6
	faceTrackSaturation    = 5.0
)

var noteKeywords = []struct {
	keyword string
	metric  string
}{
	{"mouth", MetricMouthExaggeration},
	{"lip", MetricMouthStatic},
	{"blink", MetricEyeBlink},
	{"eye", MetricEyeBlink},
	{"hand", MetricFaceSymmetry},
	{"finger", MetricFaceSymmetry},
	{"blur", MetricLowQuality},
	{"lighting", MetricColor},
	{"color", MetricColor},
	{"edge", MetricEdge},
	{"texture", MetricTexture},
	{"audio", MetricAudioSync},
}

// Contributions maps each evidence category present in b to a scalar
// importance in [0,1]. Feedback on a detection credits or debits each
// metric by its contribution.
func Contributions(b Bundle) map[string]float64 {
	c := map[string]float64{
		MetricFlicker:           b.Forensics.Flicker,
		MetricPRNU:              1 - b.Forensics.PRNU,
		MetricCodec:             b.Forensics.Codec,
		MetricAudioSync:         1 - b.AV.Sync,
		MetricEdge:              b.Artifacts.Edge,
		MetricTexture:           b.Artifacts.Texture,
		MetricColor:             b.Artifacts.Color,
		MetricFreq:              b.Artifacts.Freq,
		MetricMouthExaggeration: b.FaceDynamics.MouthExaggeration,
		MetricMouthStatic:       b.FaceDynamics.MouthStatic,
		MetricEyeBlink:          b.FaceDynamics.EyeBlink,
		MetricFaceSymmetry:      b.FaceDynamics.FaceSymmetry,
		MetricSceneLogic:        b.SceneLogic.Incoherence,
	}

	if b.Watermark.Detected {
		c[MetricWatermark] = b.Watermark.Confidence
	}
	if b.Face.Detected {
		c[MetricFaceAnalysis] = min(1, float64(b.Face.NumTracks)/faceTrackSaturation)
	}
	if b.LowQuality() {
		c[MetricLowQuality] = LowQualityContribution
	}

	for k, v := range c {
		c[k] = unit(v)
	}
	return c
}

// ApplyNotes boosts contributions for metrics mentioned in free-text feedback
// notes. Each metric is boosted at most once regardless of how many keywords
// map to it. The input map is modified and returned.
func ApplyNotes(c map[string]float64, notes string) map[string]float64 {
	text := strings.ToLower(notes)
	if text == "" {
		return c
	}

	var boosted []string
	for _, kw := range noteKeywords {
		if !strings.Contains(text, kw.keyword) || slices.Contains(boosted, kw.metric) {
			continue
		}
		boosted = append(boosted, kw.metric)
		c[kw.metric] = min(1, c[kw.metric]+NoteBoost)
	}
	return c
}

// CleanNotes trims notes and bounds them to MaxNotesLength runes.
func CleanNotes(notes string) string {
	notes = strings.TrimSpace(notes)
	r := []rune(notes)
	if len(r) > MaxNotesLength {
		return string(r[:MaxNotesLength])
	}
	return notes
}
