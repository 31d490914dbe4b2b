package simulation

import (
	"context"
	"errors"
	"testing"
	"time"

	"product-catalog/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomSleepTask_Draw(t *testing.T) {
	tests := []struct {
		name     string
		min      time.Duration
		max      time.Duration
		random   func(n int64) int64
		expected time.Duration
	}{
		{
			name:     "Lowest draw is the minimum",
			min:      time.Second,
			max:      19 * time.Second,
			random:   func(n int64) int64 { return 0 },
			expected: time.Second,
		},
		{
			name:     "Highest draw is the maximum",
			min:      time.Second,
			max:      19 * time.Second,
			random:   func(n int64) int64 { return n - 1 },
			expected: 19 * time.Second,
		},
		{
			name:     "Equal bounds never consult the random source",
			min:      3 * time.Second,
			max:      3 * time.Second,
			random:   func(n int64) int64 { panic("unexpected draw") },
			expected: 3 * time.Second,
		},
		{
			name:     "Inverted bounds collapse to the minimum",
			min:      5 * time.Second,
			max:      time.Second,
			random:   func(n int64) int64 { panic("unexpected draw") },
			expected: 5 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewLongRunningTask(tt.min, tt.max, zerolog.Nop(), WithRandom(tt.random)).(*randomSleepTask)
			assert.Equal(t, tt.expected, task.draw())
		})
	}
}

func TestRandomSleepTask_DrawRange(t *testing.T) {
	task := NewLongRunningTask(time.Second, 19*time.Second, zerolog.Nop()).(*randomSleepTask)

	seen := make(map[time.Duration]bool)
	for i := 0; i < 2000; i++ {
		d := task.draw()
		require.GreaterOrEqual(t, d, time.Second)
		require.LessOrEqual(t, d, 19*time.Second)
		require.Zero(t, d%time.Second)
		seen[d] = true
	}
	assert.Len(t, seen, 19)
}

func TestRandomSleepTask_Run(t *testing.T) {
	task := NewLongRunningTask(20*time.Millisecond, 20*time.Millisecond, zerolog.Nop(), WithUnit(time.Millisecond))

	start := time.Now()
	elapsed, err := task.Run(context.Background())

	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRandomSleepTask_RunInterrupted(t *testing.T) {
	task := NewLongRunningTask(10*time.Second, 10*time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	elapsed, err := task.Run(ctx)

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrTaskInterrupted))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, elapsed, 10*time.Second)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRandomSleepTask_RunAlreadyCancelled(t *testing.T) {
	task := NewLongRunningTask(time.Second, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := task.Run(ctx)
	assert.ErrorIs(t, err, model.ErrTaskInterrupted)
}
