package propagation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/star/skywindow/internal/geometry"
)

// chunkSize is the number of timestamps one job propagates.
const chunkSize = 256

// propagateJob is a contiguous index range of the time series.
type propagateJob struct {
	lo, hi int
}

// propagateResult reports the first failure inside a job, if any.
type propagateResult struct {
	lo  int
	err error
}

// WorkerPool manages a fixed number of goroutines for parallel SGP4 propagation.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// PropagateSeries propagates prop to every timestamp. Positions and
// velocities come back index-aligned to times. The first failing sample (in
// index order) aborts the series; a cancelled context returns ctx.Err().
func (wp *WorkerPool) PropagateSeries(ctx context.Context, prop *SGP4Propagator, times []time.Time) ([]geometry.Vec3, []geometry.Vec3, error) {
	pos := make([]geometry.Vec3, len(times))
	vel := make([]geometry.Vec3, len(times))
	if len(times) == 0 {
		return pos, vel, nil
	}

	jobs := make(chan propagateJob, wp.workers*2)
	results := make(chan propagateResult, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res := propagateResult{lo: job.lo}
				for k := job.lo; k < job.hi; k++ {
					p, v, err := prop.Propagate(times[k])
					if err != nil {
						res.err = err
						break
					}
					pos[k], vel[k] = p, v
				}
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for lo := 0; lo < len(times); lo += chunkSize {
			hi := min(lo+chunkSize, len(times))
			select {
			case jobs <- propagateJob{lo: lo, hi: hi}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		firstErr error
		firstLo  = len(times)
		failed   int
	)
	for res := range results {
		if res.err == nil {
			continue
		}
		failed++
		if res.lo < firstLo {
			firstLo, firstErr = res.lo, res.err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if firstErr != nil {
		wp.logger.Warn("propagation failed",
			"norad_id", prop.NORADID(),
			"failed_chunks", failed,
			"error", firstErr,
		)
		return nil, nil, firstErr
	}
	return pos, vel, nil
}
