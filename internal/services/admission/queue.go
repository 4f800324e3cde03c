// Package admission governs how intents reach the single writer.
//
// Each intent kind gets its own bounded FIFO queue drained by a fixed pool of
// workers. Submission never blocks: a full queue is rejected immediately so
// overload surfaces to the caller instead of piling up latency.
package admission

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/globaldex/internal/model"
)

// Processor applies one intent. It is called from worker goroutines.
type Processor[I, R any] func(ctx context.Context, intent I) (R, error)

// Config sizes a queue
type Config struct {
	// Name identifies the queue in logs ("register", "capture")
	Name string
	// Capacity is the number of intents that may wait for a worker
	Capacity int
	// Workers is the number of goroutines draining the queue. Values below 1 mean 1.
	Workers int
}

// Stats is a point-in-time view of a queue for monitoring
type Stats struct {
	Name      string
	Depth     int
	Capacity  int
	Workers   int
	Processed uint64
	Failed    uint64
	Rejected  uint64
}

type job[I, R any] struct {
	intentID   string
	intent     I
	handle     *Handle[R]
	detached   bool
	enqueuedAt time.Time
}

// Queue is a bounded FIFO of intents with its worker pool
type Queue[I, R any] struct {
	name    string
	workers int
	process Processor[I, R]
	logger  *slog.Logger

	jobs chan job[I, R]

	// mu orders Submit against Stop so a send never hits a closed channel
	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup

	processed atomic.Uint64
	failed    atomic.Uint64
	rejected  atomic.Uint64
}

// New creates a queue. Workers are not running until Start is called.
func New[I, R any](cfg Config, process Processor[I, R], logger *slog.Logger) *Queue[I, R] {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	capacity := cfg.Capacity
	if capacity < 0 {
		capacity = 0
	}
	return &Queue[I, R]{
		name:    cfg.Name,
		workers: workers,
		process: process,
		logger:  logger.With(slog.String("queue", cfg.Name)),
		jobs:    make(chan job[I, R], capacity),
	}
}

// Start launches the workers. Intents run with a context derived from ctx
// that is never cancelled, so an admitted intent always runs to completion.
func (q *Queue[I, R]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	workCtx := context.WithoutCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(workCtx, i+1)
	}

	q.logger.Info("queue started",
		slog.Int("workers", q.workers),
		slog.Int("capacity", cap(q.jobs)),
	)
}

// Submit enqueues an intent whose result the caller intends to await.
// It returns ErrQueueFull without blocking if no slot is free.
func (q *Queue[I, R]) Submit(intentID string, intent I) (*Handle[R], error) {
	h := newHandle[R](intentID)
	if err := q.enqueue(job[I, R]{intentID: intentID, intent: intent, handle: h}); err != nil {
		return nil, err
	}
	return h, nil
}

// SubmitDetached enqueues an intent nobody will wait for. Its failures are
// logged by the worker and otherwise dropped.
func (q *Queue[I, R]) SubmitDetached(intentID string, intent I) error {
	return q.enqueue(job[I, R]{
		intentID: intentID,
		intent:   intent,
		handle:   newHandle[R](intentID),
		detached: true,
	})
}

func (q *Queue[I, R]) enqueue(j job[I, R]) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return model.ErrQueueClosed
	}

	j.enqueuedAt = time.Now()
	select {
	case q.jobs <- j:
		return nil
	default:
		q.rejected.Add(1)
		return fmt.Errorf("%s: %w", q.name, model.ErrQueueFull)
	}
}

func (q *Queue[I, R]) worker(ctx context.Context, n int) {
	defer q.wg.Done()
	for j := range q.jobs {
		q.run(ctx, n, j)
	}
}

// run processes one job. A failure or panic is delivered to the handle and
// the worker moves on.
func (q *Queue[I, R]) run(ctx context.Context, n int, j job[I, R]) {
	var (
		result R
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic processing intent: %v", r)
			}
		}()
		result, err = q.process(ctx, j.intent)
	}()

	q.processed.Add(1)
	j.handle.resolve(result, err)

	if err != nil {
		q.failed.Add(1)
		attrs := []any{
			slog.String("intent_id", j.intentID),
			slog.Int("worker", n),
			slog.String("error", err.Error()),
		}
		if j.detached {
			q.logger.Error("detached intent failed", attrs...)
		} else {
			q.logger.Warn("intent failed", attrs...)
		}
		return
	}

	q.logger.Debug("intent processed",
		slog.String("intent_id", j.intentID),
		slog.Int("worker", n),
		slog.Duration("latency", time.Since(j.enqueuedAt)),
	)
}

// Stop closes the queue to new intents, lets the workers drain what is
// already queued and waits for them or for ctx to expire.
func (q *Queue[I, R]) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	started := q.started
	q.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("queue drained", slog.Uint64("processed", q.processed.Load()))
		return nil
	case <-ctx.Done():
		q.logger.Warn("queue stop timed out", slog.Int("remaining", len(q.jobs)))
		return fmt.Errorf("stop %s queue: %w", q.name, ctx.Err())
	}
}

// Len returns the number of intents waiting for a worker
func (q *Queue[I, R]) Len() int {
	return len(q.jobs)
}

// Stats returns counters for monitoring
func (q *Queue[I, R]) Stats() Stats {
	return Stats{
		Name:      q.name,
		Depth:     len(q.jobs),
		Capacity:  cap(q.jobs),
		Workers:   q.workers,
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
		Rejected:  q.rejected.Load(),
	}
}
