// Package simulation provides the slow, blocking step the generation job
// performs before writing a product.
package simulation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"product-catalog/internal/model"

	"github.com/rs/zerolog"
)

// LongRunningTask blocks the caller for a bounded random duration.
type LongRunningTask interface {
	// Run blocks until the task finishes or ctx is done and reports how long
	// it blocked. Cancellation yields an error wrapping model.ErrTaskInterrupted.
	Run(ctx context.Context) (time.Duration, error)
}

// randomSleepTask sleeps for a whole number of units drawn uniformly from
// [min, max].
type randomSleepTask struct {
	min    time.Duration
	max    time.Duration
	unit   time.Duration
	intN   func(n int64) int64
	logger zerolog.Logger
}

// Option configures a long-running task.
type Option func(*randomSleepTask)

// WithUnit sets the draw granularity. Defaults to one second.
func WithUnit(unit time.Duration) Option {
	return func(t *randomSleepTask) {
		if unit > 0 {
			t.unit = unit
		}
	}
}

// WithRandom replaces the random source. fn must return a value in [0, n).
func WithRandom(fn func(n int64) int64) Option {
	return func(t *randomSleepTask) {
		t.intN = fn
	}
}

// NewLongRunningTask creates a task sleeping between min and max inclusive.
func NewLongRunningTask(min, max time.Duration, logger zerolog.Logger, opts ...Option) LongRunningTask {
	t := &randomSleepTask{
		min:    min,
		max:    max,
		unit:   time.Second,
		intN:   rand.Int64N,
		logger: logger.With().Str("component", "long-running-task").Logger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.max < t.min {
		t.max = t.min
	}
	return t
}

// Run sleeps for the drawn duration.
func (t *randomSleepTask) Run(ctx context.Context) (time.Duration, error) {
	d := t.draw()

	t.logger.Info().
		Dur("duration", d).
		Msg("Simulate the long-running task with thread by sleep")

	start := time.Now()
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		elapsed := time.Since(start)
		t.logger.Warn().
			Err(ctx.Err()).
			Dur("elapsed", elapsed).
			Msg("long-running task interrupted")
		return elapsed, fmt.Errorf("%w: %w", model.ErrTaskInterrupted, ctx.Err())
	}

	elapsed := time.Since(start)
	t.logger.Info().
		Dur("elapsed", elapsed).
		Msg("Long-running task was stopped after a few seconds")

	return elapsed, nil
}

// draw picks a duration in [min, max] at unit granularity.
func (t *randomSleepTask) draw() time.Duration {
	lo := int64(t.min / t.unit)
	hi := int64(t.max / t.unit)
	n := lo
	if hi > lo {
		n += t.intN(hi - lo + 1)
	}
	return time.Duration(n) * t.unit
}
