// Package detections implements the detection domain for Verity.
// It persists every analysis with the evidence it was derived from, so that
// later user feedback can be traced back to the contributing metrics and
// folded into the reliability store.
package detections

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/verity/internal/evidence"
	"github.com/JaimeStill/verity/internal/fusion"
	"github.com/JaimeStill/verity/internal/reliability"
)

// Detection is a stored analysis result together with its evidence.
type Detection struct {
	ID               uuid.UUID         `json:"id"`
	Filename         string            `json:"filename"`
	Verdict          fusion.Verdict    `json:"verdict"`
	Probability      float64           `json:"probability"`
	RawProbability   float64           `json:"raw_probability"`
	Estimator        string            `json:"estimator"`
	Reasons          []fusion.Reason   `json:"reasons"`
	Overrides        []fusion.Override `json:"overrides"`
	Features         evidence.Bundle   `json:"features"`
	FeedbackReceived bool              `json:"feedback_received"`
	CreatedAt        time.Time         `json:"created_at"`
}

// AnalyzeCommand carries one evidence bundle to evaluate.
type AnalyzeCommand struct {
	Filename string          `json:"filename" validate:"max=255"`
	Evidence evidence.Bundle `json:"evidence"`
}

// UnmarshalJSON seeds Evidence with neutral defaults, so a command without
// an evidence object is scored the same as one carrying an empty object.
func (c *AnalyzeCommand) UnmarshalJSON(data []byte) error {
	type plain AnalyzeCommand
	cmd := plain{Evidence: evidence.New()}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return err
	}
	*c = AnalyzeCommand(cmd)
	return nil
}

// FeedbackCommand carries a user's correction for a detection.
// UserLabel is the ground truth the user asserts for the media.
type FeedbackCommand struct {
	UserLabel string `json:"user_label" validate:"required,oneof=AI REAL"`
	Notes     string `json:"notes"`
}

// Normalize upper-cases the label and trims and bounds the notes.
func (c *FeedbackCommand) Normalize() {
	c.UserLabel = strings.ToUpper(strings.TrimSpace(c.UserLabel))
	c.Notes = evidence.CleanNotes(c.Notes)
}

// FeedbackResult reports whether a feedback submission changed reliability
// counts. A repeated submission succeeds with Applied false.
type FeedbackResult struct {
	DetectionID uuid.UUID `json:"detection_id"`
	Applied     bool      `json:"applied"`
}

// Correct reports whether the stored verdict agrees with the user's label.
func (d Detection) Correct(label string) bool {
	return strings.EqualFold(string(d.Verdict), label)
}

// NewFeedback derives the reliability update for a detection: every metric
// present in the stored evidence contributes by its importance, boosted for
// metrics the notes mention, credited when the verdict matched the label
// and debited otherwise.
func NewFeedback(d Detection, cmd FeedbackCommand) reliability.Feedback {
	contributions := evidence.ApplyNotes(
		evidence.Contributions(d.Features),
		evidence.CleanNotes(cmd.Notes),
	)

	return reliability.Feedback{
		DetectionID:   d.ID,
		Contributions: contributions,
		Correct:       d.Correct(cmd.UserLabel),
	}
}
