package exporter

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsOnInterval(t *testing.T) {
	var runs atomic.Int32
	scheduler := NewScheduler(20*time.Millisecond, time.Second, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()
	scheduler.Run(ctx)

	count := runs.Load()
	assert.GreaterOrEqual(t, count, int32(3), "expected several ticks in the window")
	assert.LessOrEqual(t, count, int32(7), "expected no unbounded catch-up")
}

func TestMisfired(t *testing.T) {
	assert.False(t, misfired(time.Now(), 30*time.Second))
	assert.False(t, misfired(time.Now().Add(-10*time.Second), 30*time.Second))
	assert.True(t, misfired(time.Now().Add(-31*time.Second), 30*time.Second))
}

func TestSchedulerDropsTicksPastGrace(t *testing.T) {
	var runs atomic.Int32
	// Each run overruns two full intervals; the buffered tick is already past
	// the tiny grace window by the time the run finishes, so it is dropped
	// instead of compensated.
	scheduler := NewScheduler(20*time.Millisecond, time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	scheduler.Run(ctx)

	count := runs.Load()
	assert.GreaterOrEqual(t, count, int32(2))
	assert.LessOrEqual(t, count, int32(6), "misfired ticks past grace must be skipped, not replayed")
}

func TestSchedulerKeepsGoingAfterJobError(t *testing.T) {
	var runs atomic.Int32
	scheduler := NewScheduler(15*time.Millisecond, time.Second, func(ctx context.Context) error {
		runs.Add(1)
		return assert.AnError
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	scheduler.Run(ctx)

	assert.GreaterOrEqual(t, runs.Load(), int32(2), "a failed tick must not stop the schedule")
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	scheduler := NewScheduler(10*time.Millisecond, time.Second, func(ctx context.Context) error {
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}
