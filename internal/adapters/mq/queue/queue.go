// Package queue is the bounded in-memory queue of per-player jobs.
//
// A run enqueues one job per player key; workers dequeue and process them.
package queue

import (
	"context"
	"sync"

	"github.com/okian/valuator/internal/domain/model"
	"github.com/okian/valuator/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Job is one unit of per-player work. Index is the player's slot in the run's result table.
type Job struct {
	Index int
	Key   model.PlayerKey
}

// Queue provides enqueue and channel-based dequeue semantics.
type Queue interface {
	// Submit adds a job, waiting for space. It fails with ErrClosed or the context error.
	Submit(ctx context.Context, j Job) error

	// Dequeue returns a channel that will receive jobs as they become available.
	// The channel will be closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Job

	// Close stops accepting jobs; queued jobs are still delivered.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Submit adds a job, blocking while the queue is full. Consumers must be running, and Close
// waits for a blocked Submit to finish.
func (q *InMemoryQueue) Submit(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}

	select {
	case q.jobs <- j:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.jobs))
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	}
}

// Dequeue returns a channel that will receive jobs as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case j, ok := <-q.jobs:
				if !ok {
					return
				}
				select {
				case out <- j:
					metrics.RecordQueueDequeue()
					metrics.UpdateQueueSize(len(q.jobs))
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Close stops accepting jobs.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}
