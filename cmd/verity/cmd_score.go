package main

import (
	"github.com/spf13/cobra"
)

func newScoreCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "score <bundle>",
		Short: "Evaluate a JSON or YAML evidence bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := readBundle(args[0])
			if err != nil {
				return err
			}

			s, err := openSession(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			result := s.engine.Evaluate(cmd.Context(), b)
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}
