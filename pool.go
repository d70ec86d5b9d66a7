package hillclimb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Job is one unit of work run by a WorkerPool. A Job reports only fatal
// conditions through its error; evaluation failures are recorded elsewhere so
// they never cancel sibling jobs.
type Job func(ctx context.Context) error

// WorkerPool runs batches of jobs with bounded concurrency. One pool serves a
// whole search: batches run one after another, and Run does not return until
// every job of its batch has finished.
//
// With a single slot jobs run strictly one at a time, in submission order.
type WorkerPool struct {
	slots int

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
}

// NewWorkerPool creates a pool with the given number of slots. Values below 1
// are raised to 1.
func NewWorkerPool(slots int) *WorkerPool {
	return &WorkerPool{slots: max(slots, 1)}
}

// Slots returns the concurrency bound.
func (p *WorkerPool) Slots() int {
	return p.slots
}

// Run executes jobs and blocks until all of them have completed. The first
// job error cancels the batch; jobs not yet started are skipped.
//
// Returns:
// - nil when every job completed
// - an error wrapping ErrInterrupted when the batch was cancelled
// - ErrPoolClosed when the pool was closed
// - otherwise the first job error
func (p *WorkerPool) Run(ctx context.Context, jobs []Job) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()

		return ErrPoolClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.cancel = nil
		p.mu.Unlock()
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.slots)

	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			return job(gctx)
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}

	return err
}

// Stop cancels the batch currently running, if any. The pool stays usable.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
}

// Close stops the running batch and rejects further work.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	if p.cancel != nil {
		p.cancel()
	}
}
