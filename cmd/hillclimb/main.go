// Command hillclimb runs a cached lattice hill-climbing search, evaluating
// every point with an external training command.
//
//	hillclimb run --config search.yaml --db runs.db --chart trace.html
//	hillclimb runs --db runs.db
//	hillclimb metrics
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "hillclimb",
		Short:         "Cached lattice hill-climbing hyperparameter search",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCommand(), newRunsCommand(), newMetricsCommand())

	return root
}
