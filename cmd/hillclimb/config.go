package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/thalesfsp/hillclimb"
)

// fileConfig is the YAML layout read by `hillclimb run`.
//
// Example:
//
//	metric: accuracy
//	initial_sample_size: 50
//	initial_folds: 2
//	subsequent_folds: 10
//	workers: 4
//	data:
//	  train: iris.csv
//	dimensions:
//	  - name: C
//	    values: "1:10:1"
//	  - name: gamma
//	    log: {base: 10, min: -3, max: 0, step: 1}
//	command:
//	  path: ./train.sh
type fileConfig struct {
	Metric            string            `mapstructure:"metric"`
	InitialSampleSize float64           `mapstructure:"initial_sample_size"`
	InitialFolds      int               `mapstructure:"initial_folds"`
	SubsequentFolds   int               `mapstructure:"subsequent_folds"`
	Workers           int               `mapstructure:"workers"`
	Seed              int64             `mapstructure:"seed"`
	MaxIterations     int               `mapstructure:"max_iterations"`
	LogLevel          string            `mapstructure:"log_level"`
	Data              dataConfig        `mapstructure:"data"`
	Dimensions        []dimensionConfig `mapstructure:"dimensions"`
	Command           commandConfig     `mapstructure:"command"`
}

type dataConfig struct {
	Train          string `mapstructure:"train"`
	ClassIndex     int    `mapstructure:"class_index"`
	InitialTest    string `mapstructure:"initial_test"`
	SubsequentTest string `mapstructure:"subsequent_test"`
}

type dimensionConfig struct {
	Name   string     `mapstructure:"name"`
	Values string     `mapstructure:"values"`
	Log    *logConfig `mapstructure:"log"`
}

type logConfig struct {
	Base float64 `mapstructure:"base"`
	Min  float64 `mapstructure:"min"`
	Max  float64 `mapstructure:"max"`
	Step float64 `mapstructure:"step"`
}

type commandConfig struct {
	Path string   `mapstructure:"path"`
	Args []string `mapstructure:"args"`
	Dir  string   `mapstructure:"dir"`
	Env  []string `mapstructure:"env"`
}

// loadConfig reads path. Settings can be overridden by HILLCLIMB_* variables,
// e.g. HILLCLIMB_WORKERS=8.
func loadConfig(path string) (*fileConfig, error) {
	v := viper.New()

	defaults := hillclimb.DefaultConfig()
	v.SetDefault("metric", defaults.Metric)
	v.SetDefault("initial_sample_size", defaults.InitialSampleSize)
	v.SetDefault("initial_folds", defaults.InitialFolds)
	v.SetDefault("subsequent_folds", defaults.SubsequentFolds)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("seed", defaults.Seed)
	v.SetDefault("log_level", "info")
	v.SetDefault("data.class_index", -1)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("HILLCLIMB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	// Relative paths are relative to the config file.
	base := filepath.Dir(path)
	fc.Data.Train = resolve(base, fc.Data.Train)
	fc.Data.InitialTest = resolve(base, fc.Data.InitialTest)
	fc.Data.SubsequentTest = resolve(base, fc.Data.SubsequentTest)
	fc.Command.Dir = resolve(base, fc.Command.Dir)

	if strings.Contains(fc.Command.Path, string(filepath.Separator)) {
		fc.Command.Path = resolve(base, fc.Command.Path)
	}

	return &fc, nil
}

// dimensions builds the search dimensions.
func (fc *fileConfig) dimensions() ([]hillclimb.Dimension, error) {
	dims := make([]hillclimb.Dimension, 0, len(fc.Dimensions))

	for i, dc := range fc.Dimensions {
		if dc.Name == "" {
			return nil, fmt.Errorf("dimension %d has no name", i)
		}

		switch {
		case dc.Log != nil && dc.Values != "":
			return nil, fmt.Errorf("dimension %s sets both values and log", dc.Name)
		case dc.Log != nil:
			d, err := hillclimb.LogDimension(dc.Name, dc.Log.Base, dc.Log.Min, dc.Log.Max, dc.Log.Step)
			if err != nil {
				return nil, err
			}

			dims = append(dims, d)
		default:
			d, err := hillclimb.ParseDimension(dc.Name, dc.Values)
			if err != nil {
				return nil, err
			}

			dims = append(dims, d)
		}
	}

	return dims, nil
}

// searchConfig turns the file config into a SearchConfig and the training
// data. A test set that is configured but cannot be read is a
// *hillclimb.ConfigError.
func (fc *fileConfig) searchConfig() (hillclimb.SearchConfig, *hillclimb.Table, error) {
	cfg := hillclimb.DefaultConfig()

	dims, err := fc.dimensions()
	if err != nil {
		return cfg, nil, &hillclimb.ConfigError{Field: "Dimensions", Err: err}
	}

	cfg.Dimensions = dims
	cfg.Metric = fc.Metric
	cfg.InitialSampleSize = fc.InitialSampleSize
	cfg.InitialFolds = fc.InitialFolds
	cfg.SubsequentFolds = fc.SubsequentFolds
	cfg.Workers = fc.Workers
	cfg.Seed = fc.Seed
	cfg.MaxIterations = fc.MaxIterations

	if fc.Data.Train == "" {
		return cfg, nil, &hillclimb.ConfigError{Field: "Data.Train", Err: errors.New("training data is required")}
	}

	train, err := readTable(fc.Data.Train, fc.Data.ClassIndex)
	if err != nil {
		return cfg, nil, &hillclimb.ConfigError{Field: "Data.Train", Err: err}
	}

	if fc.Data.InitialTest != "" {
		test, err := readTable(fc.Data.InitialTest, fc.Data.ClassIndex)
		if err != nil {
			return cfg, nil, &hillclimb.ConfigError{Field: "InitialTestSet", Err: err}
		}

		cfg.InitialTestSet = test
	}

	if fc.Data.SubsequentTest != "" {
		test, err := readTable(fc.Data.SubsequentTest, fc.Data.ClassIndex)
		if err != nil {
			return cfg, nil, &hillclimb.ConfigError{Field: "SubsequentTestSet", Err: err}
		}

		cfg.SubsequentTestSet = test
	}

	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	return cfg, train, nil
}

func readTable(path string, classIndex int) (*hillclimb.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return hillclimb.ReadCSV(f, classIndex)
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(base, path)
}

// pointParams maps dimension names to the values of p.
func pointParams(dims []hillclimb.Dimension, p hillclimb.Point) map[string]float64 {
	params := make(map[string]float64, len(dims))

	for i, d := range dims {
		params[d.Name] = p.Value(i)
	}

	return params
}
