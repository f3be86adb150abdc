package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/bilgisen/rtfire/internal/logger"
)

// Ticker is what the runner drives on every interval
type Ticker interface {
	Tick(ctx context.Context, now time.Time) error
}

// TickFunc adapts a function to Ticker
type TickFunc func(ctx context.Context, now time.Time) error

func (f TickFunc) Tick(ctx context.Context, now time.Time) error { return f(ctx, now) }

// ManagerTicker adapts a Manager so the runner can drive it
func ManagerTicker(m *Manager) Ticker {
	return TickFunc(func(ctx context.Context, now time.Time) error {
		_, err := m.Tick(ctx, now)
		return err
	})
}

// Runner calls Tick from a single goroutine. A tick runs to completion
// before the next one is taken, so ticks never overlap.
type Runner struct {
	ticker   Ticker
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewRunner(ticker Ticker, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 20 * time.Second
	}
	return &Runner{ticker: ticker, interval: interval}
}

// Start begins ticking; calling it on a running Runner is a no-op
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return
	}

	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	stop, done := r.stop, r.done

	go func() {
		defer close(done)
		t := time.NewTicker(r.interval)
		defer t.Stop()

		log := logger.Component("scheduler")
		log.Info().Dur("interval", r.interval).Msg("Schedule runner started")
		for {
			select {
			case now := <-t.C:
				if err := r.ticker.Tick(ctx, now); err != nil {
					log.Error().Err(err).Msg("Schedule tick failed")
				}
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts the goroutine and waits for an in-flight tick to finish
func (r *Runner) Stop() {
	r.mu.Lock()
	stop, done := r.stop, r.done
	r.stop, r.done = nil, nil
	r.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	log := logger.Component("scheduler")
	log.Info().Msg("Schedule runner stopped")
}
