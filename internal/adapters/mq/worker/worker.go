// Package worker runs per-player jobs from a queue on a fixed pool of goroutines.
package worker

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/valuator/internal/adapters/mq/queue"
	"github.com/okian/valuator/pkg/logger"
	"github.com/okian/valuator/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Handler processes one job. The context carries the per-job deadline.
type Handler func(ctx context.Context, j queue.Job) error

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Stats summarizes one Run.
type Stats struct {
	Processed int64
	Failed    int64
	TimedOut  int64
}

// Pool runs a Handler over queued jobs with a fixed number of workers.
type Pool struct {
	workers int
	timeout time.Duration
	name    string
	logger  logger.Logger
}

// NewPool creates a pool. A non-positive worker count uses twice the CPU count.
func NewPool(workers int, opts ...Option) *Pool {
	if workers < 1 {
		workers = runtime.NumCPU() * 2
	}
	p := &Pool{
		workers: workers,
		name:    "worker-pool",
		logger:  logger.Get().Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Run drains q until it is closed, calling h for every job. Handler errors and per-job
// timeouts are counted and logged but never stop the run; only cancellation of ctx does,
// in which case ctx's error is returned.
func (p *Pool) Run(ctx context.Context, q Queue, h Handler) (Stats, error) {
	var processed, failed, timedOut atomic.Int64
	metrics.UpdateWorkerActiveCount(p.workers)
	defer metrics.UpdateWorkerActiveCount(0)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		log := p.logger.Named(p.name + "-" + strconv.Itoa(i))
		jobs := q.Dequeue(gctx)
		g.Go(func() error {
			for j := range jobs {
				err := p.process(gctx, h, j)
				processed.Add(1)
				switch {
				case err == nil:
				case gctx.Err() != nil:
					return gctx.Err()
				case errors.Is(err, context.DeadlineExceeded):
					timedOut.Add(1)
					metrics.RecordWorkerTimeout()
					log.Warn(gctx, "job timed out",
						logger.String("player", j.Key.String()),
						logger.Duration("timeout", p.timeout))
				default:
					failed.Add(1)
					metrics.RecordErrorByComponent("worker", "job_error")
					log.Error(gctx, "job failed",
						logger.String("player", j.Key.String()),
						logger.Error(err))
				}
			}
			return gctx.Err()
		})
	}
	err := g.Wait()
	return Stats{Processed: processed.Load(), Failed: failed.Load(), TimedOut: timedOut.Load()}, err
}

func (p *Pool) process(ctx context.Context, h Handler, j queue.Job) error {
	if p.timeout <= 0 {
		return h(ctx, j)
	}
	jctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return h(jctx, j)
}
