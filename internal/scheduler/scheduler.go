// Package scheduler drives one recurring job from a single goroutine.
//
// In fixed-rate mode the logical trigger times are T0, T0+I, T0+2I, ...
// where T0 is the start time plus the initial delay. An invocation that
// finishes before its successor's trigger time waits for it. An invocation
// that overruns is followed immediately by exactly one invocation, whose
// actual start becomes the new base for the cadence; missed ticks are not
// replayed. In fixed-delay mode the next invocation starts one interval after
// the previous one returned.
//
// Invocations never overlap. An invocation is complete when the job function
// returns; any work the job hands off to other goroutines is not tracked.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ErrAlreadyStarted is returned when Start or Run is called more than once.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Job is the body of one invocation.
type Job func(ctx context.Context) error

// Mode selects how the next trigger time is computed.
type Mode int

const (
	ModeFixedRate Mode = iota
	ModeFixedDelay
)

func (m Mode) String() string {
	switch m {
	case ModeFixedRate:
		return "fixed-rate"
	case ModeFixedDelay:
		return "fixed-delay"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a configuration value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "fixed-rate":
		return ModeFixedRate, nil
	case "fixed-delay":
		return ModeFixedDelay, nil
	default:
		return ModeFixedRate, fmt.Errorf("unknown scheduling mode %q", s)
	}
}

// State is the lifecycle state of a Scheduler.
type State int32

const (
	StateIdle State = iota
	StateWaiting
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateWaiting:
		return "WAITING_FOR_TRIGGER"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("STATE(%d)", int32(s))
	}
}

// Trigger describes one invocation.
type Trigger struct {
	Seq         uint64
	ScheduledAt time.Time // logical trigger time
	FiredAt     time.Time // actual start
}

// Observer receives invocation events on the scheduler goroutine.
type Observer interface {
	InvocationStarted(tr Trigger)
	InvocationFinished(tr Trigger, d time.Duration, err error)
	Overrun(tr Trigger, lag time.Duration)
}

// Config holds the schedule of a job.
type Config struct {
	Name         string
	InitialDelay time.Duration
	Interval     time.Duration
	Mode         Mode
}

// Scheduler runs a Job repeatedly according to its Config.
type Scheduler struct {
	cfg      Config
	job      Job
	logger   zerolog.Logger
	observer Observer

	state atomic.Int32

	mu      sync.Mutex
	started bool

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	jobCtx    context.Context
	cancelJob context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithObserver registers an observer for invocation events.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observer = o
	}
}

// New creates a scheduler for job.
func New(cfg Config, job Job, logger zerolog.Logger, opts ...Option) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", cfg.Interval)
	}
	if cfg.InitialDelay < 0 {
		return nil, fmt.Errorf("initial delay cannot be negative, got %s", cfg.InitialDelay)
	}
	if cfg.Name == "" {
		cfg.Name = "job"
	}

	s := &Scheduler{
		cfg:    cfg,
		job:    job,
		logger: logger.With().Str("component", "scheduler").Str("job", cfg.Name).Logger(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Start launches the trigger goroutine and returns immediately. Cancelling
// ctx has the same effect as Stop without a deadline.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.claim(ctx); err != nil {
		return err
	}
	go s.loop(ctx)
	return nil
}

// Run drives the job on the calling goroutine until ctx is cancelled or Stop
// is called. It returns nil once any in-flight invocation has returned.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.claim(ctx); err != nil {
		return err
	}
	s.loop(ctx)
	return nil
}

// Stop prevents further invocations and waits for an in-flight invocation to
// return. If ctx ends first the invocation's context is cancelled and the
// context error is returned; Done reports when the invocation has finally
// returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})

	s.mu.Lock()
	if !s.started {
		s.started = true
		s.state.Store(int32(StateStopped))
		close(s.done)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		s.logger.Warn().
			Err(ctx.Err()).
			Msg("stop deadline reached, cancelling in-flight invocation")
		s.mu.Lock()
		cancel := s.cancelJob
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return ctx.Err()
	}
}

// Done is closed once the scheduler has stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// State reports the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) claim(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	// Cancelling the parent stops future ticks but must not interrupt an
	// invocation that is already running; only Stop's deadline does that.
	s.jobCtx, s.cancelJob = context.WithCancel(context.WithoutCancel(ctx))
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer func() {
		s.cancelJob()
		s.state.Store(int32(StateStopped))
		s.logger.Info().Msg("scheduler stopped")
		close(s.done)
	}()

	next := time.Now().Add(s.cfg.InitialDelay)

	s.logger.Info().
		Str("mode", s.cfg.Mode.String()).
		Dur("initial_delay", s.cfg.InitialDelay).
		Dur("interval", s.cfg.Interval).
		Msg("scheduler started")

	var seq uint64
	for {
		s.state.Store(int32(StateWaiting))
		if !s.waitUntil(ctx, next) {
			return
		}

		seq++
		tr := Trigger{Seq: seq, ScheduledAt: next, FiredAt: time.Now()}

		s.state.Store(int32(StateRunning))
		s.invoke(tr)
		finished := time.Now()

		next = s.nextTrigger(tr, finished)
	}
}

// nextTrigger computes the logical trigger time following tr.
func (s *Scheduler) nextTrigger(tr Trigger, finished time.Time) time.Time {
	if s.cfg.Mode == ModeFixedDelay {
		return finished.Add(s.cfg.Interval)
	}

	due := tr.ScheduledAt.Add(s.cfg.Interval)
	if finished.Before(due) {
		return due
	}

	lag := finished.Sub(due)
	s.logger.Warn().
		Uint64("seq", tr.Seq).
		Dur("lag", lag).
		Msg("invocation overran its interval, next invocation starts immediately")
	if s.observer != nil {
		s.observer.Overrun(tr, lag)
	}
	return finished
}

// waitUntil blocks until t, reporting false if the scheduler is stopping.
func (s *Scheduler) waitUntil(ctx context.Context, t time.Time) bool {
	select {
	case <-s.stop:
		return false
	case <-ctx.Done():
		return false
	default:
	}

	d := time.Until(t)
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-s.stop:
		return false
	case <-ctx.Done():
		return false
	}
}

// invoke runs the job once. Errors and panics are logged and reported to
// the observer; they never stop the schedule.
func (s *Scheduler) invoke(tr Trigger) (err error) {
	if s.observer != nil {
		s.observer.InvocationStarted(tr)
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}

		d := time.Since(start)
		if err != nil {
			s.logger.Error().
				Err(err).
				Uint64("seq", tr.Seq).
				Dur("duration", d).
				Msg("invocation failed")
		} else {
			s.logger.Debug().
				Uint64("seq", tr.Seq).
				Dur("duration", d).
				Msg("invocation completed")
		}

		if s.observer != nil {
			s.observer.InvocationFinished(tr, d, err)
		}
	}()

	return s.job(s.jobCtx)
}
