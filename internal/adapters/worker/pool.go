// Package worker runs independent jobs on a bounded pool of goroutines fed by
// an in-memory queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/moodtune/pkg/logger"
	"github.com/okian/moodtune/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	defaultQueueSize        = 1024
	poolShutdownTimeout     = 30 * time.Second
)

// Job is one unit of work. It receives the context of the caller that
// submitted it.
type Job func(ctx context.Context) error

type task struct {
	ctx    context.Context
	job    Job
	result chan error
}

// Pool consumes jobs from a bounded queue with a fixed number of workers.
type Pool struct {
	workers  int
	capacity int
	tasks    chan task

	mu      sync.RWMutex
	closed  bool
	started bool

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	logger logger.Logger
}

// NewPool creates a pool. Workers do not run until Start is called.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		workers:  runtime.NumCPU() * defaultWorkerMultiplier,
		capacity: defaultQueueSize,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.tasks = make(chan task, p.capacity)
	metrics.UpdateWorkerQueueSize(0)
	return p
}

// Start launches the workers. Calling it more than once has no effect.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, p.logger.Named("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerActiveCount(p.workers)
	p.logger.Info(ctx, "worker pool started",
		logger.Int("workers", p.workers),
		logger.Int("queue_size", p.capacity),
	)
}

func (p *Pool) run(ctx context.Context, log logger.Logger) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-p.tasks:
			if !ok {
				return
			}
			metrics.UpdateWorkerQueueSize(len(p.tasks))
			t.result <- p.execute(t, log)
		}
	}
}

func (p *Pool) execute(t task, log logger.Logger) (err error) {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
		metrics.RecordWorkerJobLatency(float64(time.Since(start).Milliseconds()))
		if err != nil {
			metrics.RecordWorkerError()
			log.Debug(t.ctx, "job failed", logger.Error(err))
		}
	}()
	return t.job(t.ctx)
}

// Submit enqueues job without blocking. The returned channel yields the job's
// error once it has run. A full queue yields ErrQueueFull.
func (p *Pool) Submit(ctx context.Context, job Job) (<-chan error, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		metrics.RecordErrorByComponent("worker", "stopped")
		return nil, ErrStopped
	}

	t := task{ctx: ctx, job: job, result: make(chan error, 1)}
	select {
	case p.tasks <- t:
		metrics.UpdateWorkerQueueSize(len(p.tasks))
		return t.result, nil
	default:
		metrics.RecordErrorByComponent("worker", "queue_full")
		return nil, ErrQueueFull
	}
}

// enqueue waits for room in the queue until ctx ends or the pool shuts down.
func (p *Pool) enqueue(ctx context.Context, job Job) (<-chan error, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrStopped
	}

	t := task{ctx: ctx, job: job, result: make(chan error, 1)}
	select {
	case p.tasks <- t:
		metrics.UpdateWorkerQueueSize(len(p.tasks))
		return t.result, nil
	case <-p.shutdown:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do runs jobs on the pool and waits for all of them. The returned slice holds
// each job's error at the job's index. Jobs that could not be queued carry the
// reason instead.
func (p *Pool) Do(ctx context.Context, jobs []Job) []error {
	errs := make([]error, len(jobs))
	results := make([]<-chan error, len(jobs))
	for i, job := range jobs {
		ch, err := p.enqueue(ctx, job)
		if err != nil {
			errs[i] = err
			continue
		}
		results[i] = ch
	}
	for i, ch := range results {
		if ch == nil {
			continue
		}
		select {
		case errs[i] = <-ch:
		case <-ctx.Done():
			errs[i] = ctx.Err()
		}
	}
	return errs
}

// Len returns the number of queued jobs.
func (p *Pool) Len() int {
	return len(p.tasks)
}

// Shutdown stops accepting jobs, lets the workers drain the queue and waits
// for them until ctx ends.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() { close(p.shutdown) })

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	started := p.started
	p.mu.Unlock()
	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	select {
	case <-done:
		metrics.UpdateWorkerActiveCount(0)
		return nil
	case <-shutdownCtx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
	}
}
