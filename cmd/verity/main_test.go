package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/verity/internal/evidence"
	"github.com/JaimeStill/verity/internal/fusion"
)

const soraBundle = `{
  "quality": {"status": "good"},
  "watermark": {
    "detected": true,
    "confidence": 0.9,
    "persistent": true,
    "corner": true,
    "generator_hint": true,
    "watermark_text": "SORA"
  }
}`

const neutralBundle = `
quality:
  status: good
forensics:
  prnu_score: 0.5
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func run(t *testing.T, dir string, args ...string) ([]byte, error) {
	t.Helper()

	base := []string{
		"--config", filepath.Join(dir, "absent.toml"),
		"--db", filepath.Join(dir, "reliability"),
	}

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append(args, base...))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	return stdout.Bytes(), err
}

func TestScore(t *testing.T) {
	dir := t.TempDir()

	t.Run("json watermark bundle", func(t *testing.T) {
		path := writeFile(t, dir, "sora.json", soraBundle)

		out, err := run(t, dir, "score", path)
		if err != nil {
			t.Fatalf("score: %v", err)
		}

		var r fusion.Result
		if err := json.Unmarshal(out, &r); err != nil {
			t.Fatalf("decode output: %v\n%s", err, out)
		}
		if r.Verdict != fusion.VerdictAI {
			t.Errorf("verdict = %s, want AI", r.Verdict)
		}
		if !r.HasOverride(fusion.OverrideHardEvidence) {
			t.Error("hard evidence override missing")
		}
	})

	t.Run("yaml neutral bundle", func(t *testing.T) {
		path := writeFile(t, dir, "neutral.yaml", neutralBundle)

		out, err := run(t, dir, "score", path)
		if err != nil {
			t.Fatalf("score: %v", err)
		}

		var r fusion.Result
		if err := json.Unmarshal(out, &r); err != nil {
			t.Fatalf("decode output: %v", err)
		}
		if r.Verdict != fusion.VerdictUnsure {
			t.Errorf("verdict = %s, want UNSURE", r.Verdict)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := run(t, dir, "score", filepath.Join(dir, "nope.json")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("invalid bundle", func(t *testing.T) {
		path := writeFile(t, dir, "bad.json", `{"face": {"num_tracks": -2}}`)
		if _, err := run(t, dir, "score", path); err == nil {
			t.Fatal("expected error for invalid bundle")
		}
	})
}

func TestFeedback(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sora.json", soraBundle)

	decode := func(t *testing.T, out []byte) feedbackOutput {
		t.Helper()
		var fo feedbackOutput
		if err := json.Unmarshal(out, &fo); err != nil {
			t.Fatalf("decode output: %v\n%s", err, out)
		}
		return fo
	}

	out, err := run(t, dir, "feedback", path, "--label", "real", "--notes", "no watermark in the original")
	if err != nil {
		t.Fatalf("feedback: %v", err)
	}

	first := decode(t, out)
	if !first.Applied {
		t.Error("first feedback should be applied")
	}
	if first.Correct {
		t.Error("AI verdict labelled REAL should be incorrect")
	}

	out, err = run(t, dir, "feedback", path, "--label", "REAL")
	if err != nil {
		t.Fatalf("repeat feedback: %v", err)
	}

	second := decode(t, out)
	if second.Applied {
		t.Error("repeated feedback for the same file should not be applied")
	}
	if second.DetectionID != first.DetectionID {
		t.Errorf("detection id = %v, want %v", second.DetectionID, first.DetectionID)
	}

	out, err = run(t, dir, "weights")
	if err != nil {
		t.Fatalf("weights: %v", err)
	}

	var wo weightsOutput
	if err := json.Unmarshal(out, &wo); err != nil {
		t.Fatalf("decode weights: %v", err)
	}
	if w, ok := wo.Weights[evidence.MetricWatermark]; !ok || w >= 1 {
		t.Errorf("watermark weight = %v (present %v), want below 1 after incorrect feedback", w, ok)
	}
}

func TestFeedbackValidation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sora.json", soraBundle)

	tests := []struct {
		name string
		args []string
	}{
		{"missing label", []string{"feedback", path}},
		{"unknown label", []string{"feedback", path, "--label", "UNSURE"}},
		{"bad id", []string{"feedback", path, "--label", "AI", "--id", "not-a-uuid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, dir, tt.args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestWeightsEmptyStore(t *testing.T) {
	out, err := run(t, t.TempDir(), "weights")
	if err != nil {
		t.Fatalf("weights: %v", err)
	}

	var wo weightsOutput
	if err := json.Unmarshal(out, &wo); err != nil {
		t.Fatalf("decode weights: %v", err)
	}
	if len(wo.Weights) != 0 || len(wo.Stats) != 0 {
		t.Errorf("weights = %v stats = %v, want empty", wo.Weights, wo.Stats)
	}
}
