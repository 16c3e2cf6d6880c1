// verity evaluates evidence bundles offline against an embedded reliability store.
//
// Usage:
//
//	verity score <bundle.json|bundle.yaml> [--db path]
//	verity feedback <bundle> --label AI|REAL [--id uuid] [--notes text]
//	verity weights [--db path]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

const defaultDBPath = "data/reliability"

type rootFlags struct {
	config  string
	db      string
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "verity",
		Short: "Fuse forensic evidence into an AI-generated media verdict",
		Long: "Verity fuses pre-computed forensic scores into a calibrated probability\n" +
			"and verdict, and tunes metric weights from user feedback.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.config, "config", "config.toml", "Config file path (optional)")
	pf.StringVar(&flags.db, "db", "", "Reliability store directory (default "+defaultDBPath+")")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Log engine decisions to stderr")

	root.AddCommand(newScoreCmd(flags))
	root.AddCommand(newFeedbackCmd(flags))
	root.AddCommand(newWeightsCmd(flags))

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
