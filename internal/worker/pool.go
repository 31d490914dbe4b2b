// Package worker implements a bounded worker pool for fire-and-forget tasks.
//
// Tasks are queued on a fixed-capacity channel and executed by a fixed number
// of goroutines. A full queue either blocks the submitter or rejects the task
// depending on the pool's Policy; tasks are never dropped silently. Shutdown
// closes intake, drains the queue until its context expires and then abandons
// whatever is left.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"product-catalog/internal/model"

	"github.com/rs/zerolog"
)

// Task is a unit of work. ctx is cancelled when the pool abandons work.
type Task func(ctx context.Context)

// Policy decides what Submit does when the queue is full.
type Policy int

const (
	// PolicyBlock makes Submit wait for queue space until its context is done.
	PolicyBlock Policy = iota
	// PolicyReject makes Submit fail immediately with model.ErrQueueFull.
	PolicyReject
)

func (p Policy) String() string {
	switch p {
	case PolicyBlock:
		return "block"
	case PolicyReject:
		return "reject"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps a configuration value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "block":
		return PolicyBlock, nil
	case "reject":
		return PolicyReject, nil
	default:
		return PolicyBlock, fmt.Errorf("unknown saturation policy %q", s)
	}
}

// Config holds pool sizing.
type Config struct {
	Name          string
	Size          int
	QueueCapacity int
	Policy        Policy
}

// Observer receives pool events. Implementations must be safe for concurrent use.
type Observer interface {
	TaskSubmitted()
	TaskRejected()
	TaskFinished(d time.Duration, panicked bool)
	TasksAbandoned(n int)
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	QueueDepth    int
	QueueCapacity int
	Workers       int
	Active        int64
	Completed     uint64
	Rejected      uint64
	Abandoned     uint64
}

// Pool runs submitted tasks on a fixed set of workers.
type Pool struct {
	cfg      Config
	logger   zerolog.Logger
	observer Observer

	queue chan Task

	// mu guards closed. Submit holds the read lock while enqueueing so that
	// once Shutdown holds the write lock no further task can enter the queue.
	mu     sync.RWMutex
	closed bool

	stopping     chan struct{} // wakes submitters blocked on a full queue
	intakeClosed chan struct{} // workers drain the queue and exit
	abandon      chan struct{} // workers exit without draining

	taskCtx    context.Context
	cancelTask context.CancelFunc

	startOnce    sync.Once
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	active    atomic.Int64
	completed atomic.Uint64
	rejected  atomic.Uint64
	abandoned atomic.Uint64
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithObserver registers an observer for pool events.
func WithObserver(o Observer) PoolOption {
	return func(p *Pool) {
		p.observer = o
	}
}

// NewPool creates a pool. Call Start to launch its workers.
func NewPool(cfg Config, logger zerolog.Logger, opts ...PoolOption) (*Pool, error) {
	if cfg.Size < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", cfg.Size)
	}
	if cfg.QueueCapacity < 1 {
		return nil, fmt.Errorf("queue capacity must be at least 1, got %d", cfg.QueueCapacity)
	}
	if cfg.Name == "" {
		cfg.Name = "worker"
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:          cfg,
		logger:       logger.With().Str("component", "worker-pool").Str("pool", cfg.Name).Logger(),
		queue:        make(chan Task, cfg.QueueCapacity),
		stopping:     make(chan struct{}),
		intakeClosed: make(chan struct{}),
		abandon:      make(chan struct{}),
		taskCtx:      taskCtx,
		cancelTask:   cancel,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Start launches the workers. Subsequent calls are no-ops.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.cfg.Size; i++ {
			p.wg.Add(1)
			go p.worker(i + 1)
		}

		p.logger.Info().
			Int("workers", p.cfg.Size).
			Int("queue_capacity", p.cfg.QueueCapacity).
			Str("policy", p.cfg.Policy.String()).
			Msg("worker pool started")
	})
}

// Submit queues task and returns without waiting for it to run.
//
// With PolicyReject a full queue yields model.ErrQueueFull at once. With
// PolicyBlock Submit waits for space; if ctx ends first the error wraps both
// model.ErrQueueFull and the context error. After Shutdown has begun Submit
// returns model.ErrPoolClosed.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return fmt.Errorf("nil task")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return model.ErrPoolClosed
	}

	select {
	case p.queue <- task:
		p.submitted()
		return nil
	default:
	}

	if p.cfg.Policy == PolicyReject {
		p.reject()
		return model.ErrQueueFull
	}

	p.logger.Warn().
		Int("queue_depth", len(p.queue)).
		Msg("worker pool saturated, submitter waiting for queue space")

	select {
	case p.queue <- task:
		p.submitted()
		return nil
	case <-ctx.Done():
		p.reject()
		return fmt.Errorf("%w: %w", model.ErrQueueFull, ctx.Err())
	case <-p.stopping:
		p.reject()
		return model.ErrPoolClosed
	}
}

// Shutdown stops intake and waits for queued tasks to finish until ctx is
// done. Tasks still queued at that point are abandoned and their number is
// returned together with the context error.
func (p *Pool) Shutdown(ctx context.Context) (int, error) {
	var (
		abandoned int
		err       error
	)

	p.shutdownOnce.Do(func() {
		p.logger.Info().
			Int("queue_depth", len(p.queue)).
			Int64("active", p.active.Load()).
			Msg("worker pool draining")

		close(p.stopping)
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.intakeClosed)

		// Without workers nothing can drain the queue.
		p.startOnce.Do(func() {})

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
			close(p.abandon)
			p.cancelTask()
			<-done
		}
		p.cancelTask()

		for empty := false; !empty; {
			select {
			case <-p.queue:
				p.abandoned.Add(1)
			default:
				empty = true
			}
		}

		abandoned = int(p.abandoned.Load())
		if abandoned > 0 {
			if p.observer != nil {
				p.observer.TasksAbandoned(abandoned)
			}
			p.logger.Warn().
				Int("abandoned", abandoned).
				Msg("worker pool abandoned queued tasks")
		}

		p.logger.Info().
			Uint64("completed", p.completed.Load()).
			Msg("worker pool stopped")
	})

	return abandoned, err
}

// Stats reports the current pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		QueueDepth:    len(p.queue),
		QueueCapacity: cap(p.queue),
		Workers:       p.cfg.Size,
		Active:        p.active.Load(),
		Completed:     p.completed.Load(),
		Rejected:      p.rejected.Load(),
		Abandoned:     p.abandoned.Load(),
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.abandon:
			return
		case task := <-p.queue:
			p.runOrAbandon(id, task)
		case <-p.intakeClosed:
			for {
				select {
				case <-p.abandon:
					return
				case task := <-p.queue:
					p.runOrAbandon(id, task)
				default:
					return
				}
			}
		}
	}
}

// runOrAbandon runs task unless the pool is abandoning work. select picks
// randomly among ready cases, so the abandon check has to be repeated here.
func (p *Pool) runOrAbandon(id int, task Task) {
	select {
	case <-p.abandon:
		p.abandoned.Add(1)
		return
	default:
	}
	p.run(id, task)
}

func (p *Pool) run(id int, task Task) {
	p.active.Add(1)
	start := time.Now()
	panicked := false

	defer func() {
		if r := recover(); r != nil {
			panicked = true
			p.logger.Error().
				Interface("panic", r).
				Int("worker_id", id).
				Msg("task panic recovered")
		}
		p.active.Add(-1)
		p.completed.Add(1)
		if p.observer != nil {
			p.observer.TaskFinished(time.Since(start), panicked)
		}
	}()

	task(p.taskCtx)
}

func (p *Pool) submitted() {
	if p.observer != nil {
		p.observer.TaskSubmitted()
	}
}

func (p *Pool) reject() {
	p.rejected.Add(1)
	if p.observer != nil {
		p.observer.TaskRejected()
	}
	p.logger.Warn().
		Int("queue_depth", len(p.queue)).
		Msg("task rejected")
}
