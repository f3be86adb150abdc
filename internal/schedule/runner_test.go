package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunnerTicksUntilStopped(t *testing.T) {
	var count atomic.Int32
	var inFlight, overlap atomic.Bool

	r := NewRunner(TickFunc(func(ctx context.Context, now time.Time) error {
		if !inFlight.CompareAndSwap(false, true) {
			overlap.Store(true)
		}
		count.Add(1)
		time.Sleep(5 * time.Millisecond)
		inFlight.Store(false)
		return nil
	}), 10*time.Millisecond)

	r.Start(context.Background())
	r.Start(context.Background())
	time.Sleep(80 * time.Millisecond)
	r.Stop()

	seen := count.Load()
	if seen == 0 {
		t.Fatal("expected at least one tick")
	}
	if overlap.Load() {
		t.Error("ticks overlapped")
	}

	time.Sleep(30 * time.Millisecond)
	if count.Load() != seen {
		t.Error("runner kept ticking after Stop")
	}
	r.Stop()
}

func TestRunnerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var count atomic.Int32
	r := NewRunner(TickFunc(func(ctx context.Context, now time.Time) error {
		count.Add(1)
		return nil
	}), 5*time.Millisecond)

	r.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	seen := count.Load()
	time.Sleep(20 * time.Millisecond)
	if count.Load() != seen {
		t.Error("runner kept ticking after cancel")
	}
	r.Stop()
}
