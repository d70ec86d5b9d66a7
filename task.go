package hillclimb

import (
	"context"
	"fmt"
	"time"
)

// region describes one evaluation pass over a Space.
type region struct {
	space *Space
	folds int
	train Dataset
	test  Dataset
}

// regionOutcome collects the Performances of a region in enumeration order.
type regionOutcome struct {
	performances []Performance
	evaluated    int
	cached       int
	failures     []TaskFailure
}

// evaluateRegion resolves every point of r: cached points come from the
// ResultCache, the others are dispatched on the pool. It blocks until every
// dispatched task has finished, and never acts on partial results.
func (c *Controller) evaluateRegion(ctx context.Context, r region) (regionOutcome, error) {
	points := r.space.Points()
	slots := make([]*Performance, len(points))
	failed := make([]*TaskFailure, len(points))

	var (
		out   regionOutcome
		fresh []int
	)

	for i, p := range points {
		if c.cache.IsCached(r.folds, p) {
			perf := c.cache.Get(r.folds, p)
			out.cached++

			if _, err := c.ranking.Value(perf); err != nil {
				failed[i] = &TaskFailure{Point: p, Folds: r.folds, Identity: "cached", Err: err}

				continue
			}

			slots[i] = &perf

			continue
		}

		fresh = append(fresh, i)
	}

	jobs := make([]Job, 0, len(fresh))

	for _, i := range fresh {
		p := points[i]

		task, err := c.ev.NewTask(TaskSetup{
			Point:      p,
			Dimensions: c.dims,
			Folds:      r.folds,
			Train:      r.train,
			Test:       r.test,
			Seed:       c.cfg.Seed,
		})
		if err != nil {
			failed[i] = &TaskFailure{Point: p, Folds: r.folds, Identity: "unconfigured", Err: err}

			continue
		}

		// Every job owns slot i, so no lock is needed.
		jobs = append(jobs, func(ctx context.Context) error {
			start := time.Now()

			evaluation, err := task.Run(ctx)
			if err != nil {
				// Cancellation aborts the whole region, anything else only this point.
				if ctx.Err() != nil {
					return ctx.Err()
				}

				failed[i] = &TaskFailure{Point: p, Folds: r.folds, Identity: task.Identity(), Err: err}

				return nil
			}

			perf := NewPerformance(p, r.folds, evaluation.Measurements, evaluation.Model, time.Since(start))

			// A result that cannot be ranked is a failure of this point and
			// is not cached, so a later run evaluates it again.
			if _, err := c.ranking.Value(perf); err != nil {
				failed[i] = &TaskFailure{Point: p, Folds: r.folds, Identity: task.Identity(), Err: err}

				return nil
			}

			if !c.cache.Put(r.folds, p, perf) {
				perf = c.cache.Get(r.folds, p)
			}

			slots[i] = &perf

			return nil
		})
	}

	err := c.pool.Run(ctx, jobs)

	for i := range points {
		if failed[i] != nil {
			out.failures = append(out.failures, *failed[i])
		}
	}

	if err != nil {
		return out, err
	}

	for _, i := range fresh {
		if slots[i] != nil {
			out.evaluated++
		}
	}

	for _, perf := range slots {
		if perf != nil {
			out.performances = append(out.performances, *perf)
		}
	}

	if len(out.performances) == 0 {
		if len(fresh) == 0 && len(out.failures) == 0 {
			return out, fmt.Errorf("%w: %s", ErrCacheInconsistent, r.space)
		}

		return out, fmt.Errorf("%w: %d of %d points", ErrAllTasksFailed, len(out.failures), len(points))
	}

	return out, nil
}
