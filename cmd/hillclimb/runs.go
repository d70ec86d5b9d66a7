package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/thalesfsp/hillclimb"
	"github.com/thalesfsp/hillclimb/store"
	"gopkg.in/yaml.v3"
)

func newRunsCommand() *cobra.Command {
	var (
		db    string
		runID string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, or show one with its steps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ts, err := store.Open(cmd.Context(), db)
			if err != nil {
				return err
			}
			defer ts.Close()

			if runID == "" {
				runs, err := ts.ListRuns(cmd.Context())
				if err != nil {
					return err
				}

				return yaml.NewEncoder(cmd.OutOrStdout()).Encode(runs)
			}

			run, err := ts.GetRun(cmd.Context(), runID)
			if err != nil {
				return err
			}

			steps, err := ts.ListSteps(cmd.Context(), runID)
			if err != nil {
				return err
			}

			return yaml.NewEncoder(cmd.OutOrStdout()).Encode(struct {
				Run   store.RunRecord    `yaml:"run"`
				Steps []store.StepRecord `yaml:"steps"`
			}{run, steps})
		},
	}

	cmd.Flags().StringVar(&db, "db", "runs.db", "sqlite database")
	cmd.Flags().StringVar(&runID, "id", "", "show a single run")

	return cmd
}

func newMetricsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List known metric ids and their polarity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printMetrics(cmd.OutOrStdout(), hillclimb.DefaultMetricTable())
		},
	}
}

func printMetrics(w io.Writer, table *hillclimb.MetricTable) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tPOLARITY\tDESCRIPTION")

	for _, def := range table.List() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", def.ID, def.Polarity, def.Description)
	}

	return tw.Flush()
}
