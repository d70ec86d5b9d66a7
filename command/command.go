// Package command implements a hillclimb.Evaluator that trains and scores
// every point by running an external program.
//
// The program receives the point and the data partitions through the
// environment:
//
//	HC_FOLDS          cross-validation fold count
//	HC_SEED           random seed
//	HC_TRAIN          path of the training partition, CSV with header
//	HC_TEST           path of the test partition, empty when cross-validating
//	HC_PARAM_<NAME>   value of dimension <NAME>, upper-cased
//
// It must print a single JSON object on stdout, mapping metric ids to either a
// number or an array of per-fold numbers:
//
//	{"accuracy": [0.91, 0.89, 0.93], "error_rate": 0.09}
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/thalesfsp/hillclimb"
	"github.com/tidwall/gjson"
)

// Environment variable names handed to the program.
const (
	EnvFolds       = "HC_FOLDS"
	EnvSeed        = "HC_SEED"
	EnvTrain       = "HC_TRAIN"
	EnvTest        = "HC_TEST"
	EnvParamPrefix = "HC_PARAM_"
)

// waitDelay bounds how long a cancelled command may keep its output pipes
// open, e.g. through a grandchild process.
const waitDelay = time.Second

// Evaluator runs Command once per point.
type Evaluator struct {
	// Command is the program to execute.
	Command string

	// Args are passed to Command unchanged.
	Args []string

	// Dir is the working directory. Empty means the current one.
	Dir string

	// Env is appended to the inherited environment.
	Env []string

	// Metrics holds metric polarities. hillclimb.DefaultMetricTable is used
	// when nil.
	Metrics *hillclimb.MetricTable
}

// New returns an Evaluator running name with args.
func New(name string, args ...string) *Evaluator {
	return &Evaluator{Command: name, Args: args}
}

// NewTask implements hillclimb.Evaluator.
func (e *Evaluator) NewTask(setup hillclimb.TaskSetup) (hillclimb.Task, error) {
	if e.Command == "" {
		return nil, errors.New("no command configured")
	}

	if len(setup.Dimensions) != setup.Point.Dimensions() {
		return nil, fmt.Errorf("%d dimension names for a %d-dimensional point", len(setup.Dimensions), setup.Point.Dimensions())
	}

	params := make(map[string]float64, len(setup.Dimensions))
	for i, name := range setup.Dimensions {
		params[name] = setup.Point.Value(i)
	}

	return &task{ev: e, setup: setup, params: params}, nil
}

// MetricValue implements hillclimb.Evaluator.
func (e *Evaluator) MetricValue(perf hillclimb.Performance, metricID string) (float64, error) {
	return hillclimb.MetricValue(perf, metricID)
}

// Polarity implements hillclimb.Evaluator.
func (e *Evaluator) Polarity(metricID string) (hillclimb.Polarity, error) {
	metrics := e.Metrics
	if metrics == nil {
		metrics = hillclimb.DefaultMetricTable()
	}

	return metrics.Polarity(metricID)
}

// Model is what a command task returns as the trained model: the parameters
// it was run with and the program's complete output.
type Model struct {
	Command string             `json:"command" yaml:"command"`
	Params  map[string]float64 `json:"params" yaml:"params"`
	Output  string             `json:"output" yaml:"output"`
}

type task struct {
	ev     *Evaluator
	setup  hillclimb.TaskSetup
	params map[string]float64
}

func (t *task) Identity() string {
	parts := []string{t.ev.Command}
	parts = append(parts, t.ev.Args...)

	for _, name := range t.setup.Dimensions {
		parts = append(parts, fmt.Sprintf("%s=%s", name, formatFloat(t.params[name])))
	}

	return strings.Join(parts, " ")
}

func (t *task) Run(ctx context.Context) (hillclimb.Evaluation, error) {
	dir, err := os.MkdirTemp("", "hillclimb-task-*")
	if err != nil {
		return hillclimb.Evaluation{}, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	trainPath := filepath.Join(dir, "train.csv")
	if err := writeDataset(trainPath, t.setup.Train); err != nil {
		return hillclimb.Evaluation{}, err
	}

	testPath := ""
	if t.setup.Test != nil {
		testPath = filepath.Join(dir, "test.csv")
		if err := writeDataset(testPath, t.setup.Test); err != nil {
			return hillclimb.Evaluation{}, err
		}
	}

	cmd := exec.CommandContext(ctx, t.ev.Command, t.ev.Args...)
	cmd.Dir = t.ev.Dir
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(), t.ev.Env...)
	cmd.Env = append(cmd.Env,
		EnvFolds+"="+strconv.Itoa(t.setup.Folds),
		EnvSeed+"="+strconv.FormatInt(t.setup.Seed, 10),
		EnvTrain+"="+trainPath,
		EnvTest+"="+testPath,
	)

	for _, name := range t.setup.Dimensions {
		cmd.Env = append(cmd.Env, EnvParamPrefix+envName(name)+"="+formatFloat(t.params[name]))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return hillclimb.Evaluation{}, ctx.Err()
		}

		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return hillclimb.Evaluation{}, fmt.Errorf("%s: %w", t.ev.Command, err)
		}

		return hillclimb.Evaluation{}, fmt.Errorf("%s: %w: %s", t.ev.Command, err, msg)
	}

	measurements, err := ParseMeasurements(stdout.String())
	if err != nil {
		return hillclimb.Evaluation{}, err
	}

	return hillclimb.Evaluation{
		Measurements: measurements,
		Model: Model{
			Command: t.ev.Command,
			Params:  t.params,
			Output:  strings.TrimSpace(stdout.String()),
		},
	}, nil
}

// ParseMeasurements reads the metric object printed by a command. Members that
// are neither numbers nor arrays of numbers are ignored.
func ParseMeasurements(output string) (map[string][]float64, error) {
	output = strings.TrimSpace(output)

	if !gjson.Valid(output) {
		return nil, fmt.Errorf("output is not valid JSON: %q", truncate(output, 80))
	}

	result := gjson.Parse(output)
	if !result.IsObject() {
		return nil, errors.New("output is not a JSON object")
	}

	measurements := map[string][]float64{}

	var parseErr error

	result.ForEach(func(key, value gjson.Result) bool {
		switch {
		case value.Type == gjson.Number:
			measurements[key.String()] = []float64{value.Float()}
		case value.IsArray():
			var values []float64

			for _, v := range value.Array() {
				if v.Type != gjson.Number {
					parseErr = fmt.Errorf("metric %q has a non-numeric fold value %s", key.String(), v.Raw)

					return false
				}

				values = append(values, v.Float())
			}

			if len(values) > 0 {
				measurements[key.String()] = values
			}
		}

		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}

	if len(measurements) == 0 {
		return nil, errors.New("output holds no measurements")
	}

	return measurements, nil
}

func writeDataset(path string, ds hillclimb.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := hillclimb.WriteCSV(f, ds); err != nil {
		f.Close()

		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return f.Close()
}

// envName upper-cases name and replaces anything that is not a letter or a
// digit with an underscore.
func envName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
