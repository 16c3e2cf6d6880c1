package main

import (
	"github.com/spf13/cobra"

	"github.com/JaimeStill/verity/internal/reliability"
)

type weightsOutput struct {
	Weights map[string]float64        `json:"weights"`
	Stats   []reliability.Reliability `json:"stats"`
}

func newWeightsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "weights",
		Short: "Show adaptive metric weights and feedback counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			weights, err := s.store.Weights(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := s.store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), weightsOutput{Weights: weights, Stats: stats})
		},
	}
}
