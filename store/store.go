// Package store persists hill-climbing searches in SQLite: one row per run
// and one row per accepted best of an iteration.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/thalesfsp/hillclimb"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Run statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusError    = "error"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// RunRecord is a persisted search run.
type RunRecord struct {
	RunID           string     `json:"run_id" yaml:"run_id"`
	Metric          string     `json:"metric" yaml:"metric"`
	Polarity        string     `json:"polarity" yaml:"polarity"`
	Dimensions      []string   `json:"dimensions" yaml:"dimensions"`
	InitialFolds    int        `json:"initial_folds" yaml:"initial_folds"`
	SubsequentFolds int        `json:"subsequent_folds" yaml:"subsequent_folds"`
	Workers         int        `json:"workers" yaml:"workers"`
	Status          string     `json:"status" yaml:"status"`
	BestPoint       []float64  `json:"best_point,omitempty" yaml:"best_point,omitempty"`
	BestValue       float64    `json:"best_value" yaml:"best_value"`
	Iterations      int        `json:"iterations" yaml:"iterations"`
	StopReason      string     `json:"stop_reason,omitempty" yaml:"stop_reason,omitempty"`
	Failures        int        `json:"failures" yaml:"failures"`
	Error           string     `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// StepRecord is a persisted trace step.
type StepRecord struct {
	Step       int       `json:"step" yaml:"step"`
	Iteration  int       `json:"iteration" yaml:"iteration"`
	State      string    `json:"state" yaml:"state"`
	Folds      int       `json:"folds" yaml:"folds"`
	Point      []float64 `json:"point" yaml:"point"`
	Location   []int     `json:"location" yaml:"location"`
	Value      float64   `json:"value" yaml:"value"`
	RegionSize int       `json:"region_size" yaml:"region_size"`
	Evaluated  int       `json:"evaluated" yaml:"evaluated"`
	Cached     int       `json:"cached" yaml:"cached"`
	Failed     int       `json:"failed" yaml:"failed"`
}

// TraceStore implements hillclimb.TraceRecorder on SQLite.
type TraceStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and migrates it to the latest
// schema.
func Open(ctx context.Context, path string) (*TraceStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if err := migrateUp(db); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &TraceStore{db: db}, nil
}

// migrateUp applies every pending embedded migration.
func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	// m is not closed: closing it would close db.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	return nil
}

// Close closes the database.
func (s *TraceStore) Close() error {
	return s.db.Close()
}

// StartRun implements hillclimb.TraceRecorder.
func (s *TraceStore) StartRun(ctx context.Context, run hillclimb.RunInfo) error {
	dims, err := json.Marshal(run.Dimensions)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO search_runs (
			run_id, metric, polarity, dimensions_json, initial_folds,
			subsequent_folds, workers, status, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Metric, run.Polarity.String(), string(dims), run.InitialFolds,
		run.SubsequentFolds, run.Workers, StatusRunning, run.StartedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	return nil
}

// RecordStep implements hillclimb.TraceRecorder.
func (s *TraceStore) RecordStep(ctx context.Context, runID string, step hillclimb.TraceStep) error {
	point := step.Best.Point()

	values, err := json.Marshal(point.Values())
	if err != nil {
		return err
	}

	location, err := json.Marshal(point.Location())
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO search_steps (
			run_id, step, iteration, state, folds, point_json, location_json,
			value, region_size, evaluated, cached, failed
		) VALUES (?, (SELECT COUNT(*) FROM search_steps WHERE run_id = ?), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, runID, step.Iteration, step.State.String(), step.Folds, string(values), string(location),
		step.Value, step.RegionSize, step.Evaluated, step.Cached, step.Failed,
	)
	if err != nil {
		return fmt.Errorf("inserting step of run %s: %w", runID, err)
	}

	return nil
}

// FinishRun implements hillclimb.TraceRecorder.
func (s *TraceStore) FinishRun(ctx context.Context, runID string, result *hillclimb.Result, runErr error) error {
	var (
		status     = StatusComplete
		bestPoint  sql.NullString
		bestValue  sql.NullFloat64
		iterations sql.NullInt64
		reason     sql.NullString
		failures   sql.NullInt64
		errMsg     sql.NullString
	)

	if runErr != nil {
		status = StatusError
		errMsg = sql.NullString{String: runErr.Error(), Valid: true}
	}

	if result != nil {
		values, err := json.Marshal(result.Point().Values())
		if err != nil {
			return err
		}

		bestPoint = sql.NullString{String: string(values), Valid: true}
		bestValue = sql.NullFloat64{Float64: result.Value, Valid: true}
		iterations = sql.NullInt64{Int64: int64(result.Iterations), Valid: true}
		reason = sql.NullString{String: string(result.Reason), Valid: true}
		failures = sql.NullInt64{Int64: int64(len(result.Failures)), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE search_runs
		SET status = ?, best_point_json = ?, best_value = ?, iterations = ?,
		    stop_reason = ?, failures = ?, error = ?, completed_at = ?
		WHERE run_id = ?`,
		status, bestPoint, bestValue, iterations, reason, failures, errMsg, time.Now().UnixNano(), runID,
	)
	if err != nil {
		return fmt.Errorf("updating run %s: %w", runID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("updating run %s: %w", runID, ErrNotFound)
	}

	return nil
}

// GetRun returns one run.
func (s *TraceStore) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, runColumns+` WHERE run_id = ?`, runID)

	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%s: %w", runID, ErrNotFound)
	}

	return rec, err
}

// ListRuns returns every run, newest first.
func (s *TraceStore) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, runColumns+` ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord

	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}

		runs = append(runs, rec)
	}

	return runs, rows.Err()
}

// ListSteps returns the trace of a run, in order.
func (s *TraceStore) ListSteps(ctx context.Context, runID string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, iteration, state, folds, point_json, location_json,
		       value, region_size, evaluated, cached, failed
		FROM search_steps
		WHERE run_id = ?
		ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord

	for rows.Next() {
		var (
			st              StepRecord
			point, location string
		)

		if err := rows.Scan(
			&st.Step, &st.Iteration, &st.State, &st.Folds, &point, &location,
			&st.Value, &st.RegionSize, &st.Evaluated, &st.Cached, &st.Failed,
		); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}

		if err := json.Unmarshal([]byte(point), &st.Point); err != nil {
			return nil, fmt.Errorf("decode step point: %w", err)
		}

		if err := json.Unmarshal([]byte(location), &st.Location); err != nil {
			return nil, fmt.Errorf("decode step location: %w", err)
		}

		steps = append(steps, st)
	}

	return steps, rows.Err()
}

const runColumns = `
	SELECT run_id, metric, polarity, dimensions_json, initial_folds,
	       subsequent_folds, workers, status, best_point_json, best_value,
	       iterations, stop_reason, failures, error, started_at, completed_at
	FROM search_runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var (
		rec         RunRecord
		dims        string
		bestPoint   sql.NullString
		bestValue   sql.NullFloat64
		iterations  sql.NullInt64
		reason      sql.NullString
		failures    sql.NullInt64
		errMsg      sql.NullString
		startedAt   int64
		completedAt sql.NullInt64
	)

	if err := row.Scan(
		&rec.RunID, &rec.Metric, &rec.Polarity, &dims, &rec.InitialFolds,
		&rec.SubsequentFolds, &rec.Workers, &rec.Status, &bestPoint, &bestValue,
		&iterations, &reason, &failures, &errMsg, &startedAt, &completedAt,
	); err != nil {
		return RunRecord{}, err
	}

	if err := json.Unmarshal([]byte(dims), &rec.Dimensions); err != nil {
		return RunRecord{}, fmt.Errorf("decode dimensions: %w", err)
	}

	if bestPoint.Valid {
		if err := json.Unmarshal([]byte(bestPoint.String), &rec.BestPoint); err != nil {
			return RunRecord{}, fmt.Errorf("decode best point: %w", err)
		}
	}

	rec.BestValue = bestValue.Float64
	rec.Iterations = int(iterations.Int64)
	rec.StopReason = reason.String
	rec.Failures = int(failures.Int64)
	rec.Error = errMsg.String
	rec.StartedAt = time.Unix(0, startedAt).UTC()

	if completedAt.Valid {
		t := time.Unix(0, completedAt.Int64).UTC()
		rec.CompletedAt = &t
	}

	return rec, nil
}
