package evidence_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/verity/internal/evidence"
)

func TestDecodeDefaults(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format evidence.Format
	}{
		{"empty json", "", evidence.FormatJSON},
		{"empty object", "{}", evidence.FormatJSON},
		{"empty yaml", "", evidence.FormatYAML},
	}

	want := evidence.New()
	want.Quality.Status = evidence.StatusGood

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evidence.Decode([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("bundle mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodePartial(t *testing.T) {
	jsonData := `{
		"watermark": {"detected": true, "persistent": true, "watermark_text": "SORA"},
		"forensics": {"prnu_score": 0.85},
		"artifact_analysis": {"freq_artifact_score": 1.7},
		"unknown_block": {"ignored": true}
	}`

	yamlData := `
watermark:
  detected: true
  persistent: true
  watermark_text: SORA
forensics:
  prnu_score: 0.85
artifact_analysis:
  freq_artifact_score: 1.7
`

	for _, tt := range []struct {
		name   string
		data   string
		format evidence.Format
	}{
		{"json", jsonData, evidence.FormatJSON},
		{"yaml", yamlData, evidence.FormatYAML},
	} {
		t.Run(tt.name, func(t *testing.T) {
			b, err := evidence.Decode([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}

			if !b.Watermark.Detected || b.Watermark.Text != "SORA" {
				t.Errorf("watermark = %+v", b.Watermark)
			}
			if b.Watermark.Confidence != evidence.Neutral {
				t.Errorf("absent confidence = %v, want neutral", b.Watermark.Confidence)
			}
			if b.Forensics.PRNU != 0.85 {
				t.Errorf("prnu = %v, want 0.85", b.Forensics.PRNU)
			}
			if b.Forensics.Flicker != evidence.Neutral {
				t.Errorf("absent flicker = %v, want neutral", b.Forensics.Flicker)
			}
			if b.Artifacts.Freq != 1 {
				t.Errorf("freq = %v, want clamped to 1", b.Artifacts.Freq)
			}
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format evidence.Format
	}{
		{"malformed json", `{"watermark":`, evidence.FormatJSON},
		{"wrong type", `{"forensics": {"prnu_score": "high"}}`, evidence.FormatJSON},
		{"bad status", `{"quality": {"status": "excellent"}}`, evidence.FormatJSON},
		{"malformed yaml", "watermark: [", evidence.FormatYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evidence.Decode([]byte(tt.data), tt.format)
			if !errors.Is(err, evidence.ErrInvalidBundle) {
				t.Errorf("err = %v, want ErrInvalidBundle", err)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want evidence.Format
	}{
		{"bundle.json", evidence.FormatJSON},
		{"bundle.yaml", evidence.FormatYAML},
		{"BUNDLE.YML", evidence.FormatYAML},
		{"bundle", evidence.FormatJSON},
	}

	for _, tt := range tests {
		if got := evidence.FormatFromPath(tt.path); got != tt.want {
			t.Errorf("FormatFromPath(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	b := evidence.New()
	b.Forensics.PRNU = math.NaN()
	b.AV.Sync = -0.2
	b.Face.NumTracks = -3

	b.Normalize()

	if b.Forensics.PRNU != evidence.Neutral {
		t.Errorf("NaN prnu = %v, want neutral", b.Forensics.PRNU)
	}
	if b.AV.Sync != 0 {
		t.Errorf("sync = %v, want 0", b.AV.Sync)
	}
	if b.Face.NumTracks != 0 {
		t.Errorf("tracks = %d, want 0", b.Face.NumTracks)
	}
}

func TestQualityStatus(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		quality evidence.Quality
		want    evidence.Status
	}{
		{"no metrics", evidence.Quality{}, evidence.StatusGood},
		{"sharp", evidence.Quality{Blur: f(120), Brisque: f(30), Bitrate: f(1_000_000)}, evidence.StatusGood},
		{"blurry", evidence.Quality{Blur: f(40)}, evidence.StatusLow},
		{"poor brisque", evidence.Quality{Brisque: f(50)}, evidence.StatusLow},
		{"starved bitrate", evidence.Quality{Bitrate: f(150_000)}, evidence.StatusLow},
		{"explicit status wins", evidence.Quality{Status: evidence.StatusGood, Blur: f(10)}, evidence.StatusGood},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := evidence.New()
			b.Quality = tt.quality
			b.Normalize()
			if b.Quality.Status != tt.want {
				t.Errorf("status = %s, want %s", b.Quality.Status, tt.want)
			}
		})
	}
}

func TestContributions(t *testing.T) {
	b := evidence.New()
	b.Forensics.PRNU = 0.8
	b.Face = evidence.Face{Detected: true, NumTracks: 2}
	b.Quality.Status = evidence.StatusLow

	c := evidence.Contributions(b)

	if _, ok := c[evidence.MetricWatermark]; ok {
		t.Error("watermark contribution present without detection")
	}
	if got := c[evidence.MetricPRNU]; math.Abs(got-0.2) > 1e-12 {
		t.Errorf("prnu = %v, want 0.2", got)
	}
	if got := c[evidence.MetricFaceAnalysis]; math.Abs(got-0.4) > 1e-12 {
		t.Errorf("face = %v, want 0.4", got)
	}
	if got := c[evidence.MetricLowQuality]; got != evidence.LowQualityContribution {
		t.Errorf("low quality = %v, want %v", got, evidence.LowQualityContribution)
	}
	for k, v := range c {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v, out of range", k, v)
		}
	}
}

func TestApplyNotes(t *testing.T) {
	c := map[string]float64{
		evidence.MetricEyeBlink: 0.5,
		evidence.MetricEdge:     0.95,
	}

	got := evidence.ApplyNotes(c, "Weird EYE movement, no blinking, jagged edges")

	if v := got[evidence.MetricEyeBlink]; math.Abs(v-0.65) > 1e-12 {
		t.Errorf("eye blink = %v, want single boost to 0.65", v)
	}
	if v := got[evidence.MetricEdge]; v != 1 {
		t.Errorf("edge = %v, want capped at 1", v)
	}
	if v, ok := got[evidence.MetricAudioSync]; ok {
		t.Errorf("audio sync boosted to %v without mention", v)
	}
}

func TestCleanNotes(t *testing.T) {
	long := make([]rune, evidence.MaxNotesLength+20)
	for i := range long {
		long[i] = 'é'
	}

	if got := evidence.CleanNotes("  hands look wrong \n"); got != "hands look wrong" {
		t.Errorf("CleanNotes = %q", got)
	}
	if got := []rune(evidence.CleanNotes(string(long))); len(got) != evidence.MaxNotesLength {
		t.Errorf("length = %d, want %d", len(got), evidence.MaxNotesLength)
	}
}
