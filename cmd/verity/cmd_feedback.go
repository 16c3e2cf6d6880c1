package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/verity/internal/detections"
	"github.com/JaimeStill/verity/internal/fusion"
	"github.com/JaimeStill/verity/pkg/validation"
)

type feedbackFlags struct {
	label string
	id    string
	notes string
}

type feedbackOutput struct {
	DetectionID uuid.UUID      `json:"detection_id"`
	Verdict     fusion.Verdict `json:"verdict"`
	Correct     bool           `json:"correct"`
	Applied     bool           `json:"applied"`
}

func newFeedbackCmd(flags *rootFlags) *cobra.Command {
	ff := &feedbackFlags{}

	cmd := &cobra.Command{
		Use:   "feedback <bundle>",
		Short: "Record the true label for a bundle and update metric reliability",
		Long: "Evaluates the bundle, compares the verdict with --label, and credits or\n" +
			"debits every contributing metric. The detection id defaults to a hash of\n" +
			"the file contents, so repeating feedback for the same file has no effect.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc := detections.FeedbackCommand{UserLabel: ff.label, Notes: ff.notes}
			fc.Normalize()
			if err := validation.Struct(fc); err != nil {
				return fmt.Errorf("%w: %w", detections.ErrInvalidCommand, err)
			}

			b, data, err := readBundle(args[0])
			if err != nil {
				return err
			}

			id := uuid.NewSHA1(uuid.NameSpaceOID, data)
			if ff.id != "" {
				if id, err = uuid.Parse(ff.id); err != nil {
					return fmt.Errorf("invalid --id: %w", err)
				}
			}

			s, err := openSession(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			result := s.engine.Evaluate(cmd.Context(), b)
			d := detections.Detection{
				ID:       id,
				Verdict:  result.Verdict,
				Features: b,
			}

			fb := detections.NewFeedback(d, fc)
			applied, err := s.store.Record(cmd.Context(), fb)
			if err != nil {
				return fmt.Errorf("record feedback: %w", err)
			}

			return printJSON(cmd.OutOrStdout(), feedbackOutput{
				DetectionID: id,
				Verdict:     result.Verdict,
				Correct:     fb.Correct,
				Applied:     applied,
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&ff.label, "label", "", "True label of the media: AI or REAL (required)")
	f.StringVar(&ff.id, "id", "", "Detection id (default: derived from file contents)")
	f.StringVar(&ff.notes, "notes", "", "Free-text observations; mentioned cues are weighted higher")
	_ = cmd.MarkFlagRequired("label")

	return cmd
}
