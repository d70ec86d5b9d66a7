package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/thalesfsp/hillclimb"
	"github.com/thalesfsp/hillclimb/command"
	"github.com/thalesfsp/hillclimb/report"
	"github.com/thalesfsp/hillclimb/store"
	"gopkg.in/yaml.v3"
)

type runOptions struct {
	config   string
	db       string
	chart    string
	logLevel string
}

// summary is the YAML document printed after a search.
type summary struct {
	RunID      string             `yaml:"run_id"`
	Metric     string             `yaml:"metric"`
	Best       map[string]float64 `yaml:"best"`
	Value      float64            `yaml:"value"`
	StdDev     float64            `yaml:"std_dev"`
	Folds      int                `yaml:"folds"`
	Iterations int                `yaml:"iterations"`
	Reason     string             `yaml:"reason"`
	Failures   []string           `yaml:"failures,omitempty"`
	Trace      []summaryStep      `yaml:"trace"`
}

type summaryStep struct {
	Iteration int                `yaml:"iteration"`
	State     string             `yaml:"state"`
	Folds     int                `yaml:"folds"`
	Best      map[string]float64 `yaml:"best"`
	Value     float64            `yaml:"value"`
	Evaluated int                `yaml:"evaluated"`
	Cached    int                `yaml:"cached"`
	Failed    int                `yaml:"failed"`
}

func newRunCommand() *cobra.Command {
	var o runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a search described by a YAML config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSearch(ctx, o, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&o.config, "config", "c", "search.yaml", "search config file")
	cmd.Flags().StringVar(&o.db, "db", "", "sqlite database recording the run")
	cmd.Flags().StringVar(&o.chart, "chart", "", "write an HTML chart of the trace to this file")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "", "overrides log_level of the config")

	return cmd
}

func runSearch(ctx context.Context, o runOptions, stdout, stderr io.Writer) error {
	fc, err := loadConfig(o.config)
	if err != nil {
		return err
	}

	level := fc.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}

	logger, err := hillclimb.NewLogger(stderr, level)
	if err != nil {
		return err
	}

	cfg, train, err := fc.searchConfig()
	if err != nil {
		return err
	}

	ev := command.New(fc.Command.Path, fc.Command.Args...)
	ev.Dir = fc.Command.Dir
	ev.Env = fc.Command.Env

	opts := []hillclimb.Option{hillclimb.WithLogger(logger)}

	if o.db != "" {
		ts, err := store.Open(ctx, o.db)
		if err != nil {
			return err
		}
		defer ts.Close()

		opts = append(opts, hillclimb.WithRecorder(ts))
	}

	ctrl, err := hillclimb.NewController(cfg, ev, opts...)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	result, err := ctrl.Run(ctx, train)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"run_id": result.RunID,
		"best":   result.Point().String(),
		"value":  result.Value,
		"reason": string(result.Reason),
	}).Info("Search finished")

	if o.chart != "" {
		if err := writeChart(o.chart, result, cfg.Metric); err != nil {
			return err
		}
	}

	return yaml.NewEncoder(stdout).Encode(summarize(cfg, result))
}

func writeChart(path string, result *hillclimb.Result, metric string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart %s: %w", path, err)
	}

	if err := report.RenderResult(f, result, metric, report.Options{}); err != nil {
		f.Close()

		return fmt.Errorf("failed to render chart: %w", err)
	}

	return f.Close()
}

func summarize(cfg hillclimb.SearchConfig, result *hillclimb.Result) summary {
	s := summary{
		RunID:      result.RunID,
		Metric:     cfg.Metric,
		Best:       pointParams(cfg.Dimensions, result.Point()),
		Value:      result.Value,
		StdDev:     result.Best.StdDev(cfg.Metric),
		Folds:      result.Best.Folds(),
		Iterations: result.Iterations,
		Reason:     string(result.Reason),
	}

	for _, f := range result.Failures {
		s.Failures = append(s.Failures, f.Error())
	}

	for _, step := range result.Trace {
		s.Trace = append(s.Trace, summaryStep{
			Iteration: step.Iteration,
			State:     step.State.String(),
			Folds:     step.Folds,
			Best:      pointParams(cfg.Dimensions, step.Best.Point()),
			Value:     step.Value,
			Evaluated: step.Evaluated,
			Cached:    step.Cached,
			Failed:    step.Failed,
		})
	}

	return s
}
