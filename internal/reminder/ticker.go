package reminder

import (
	"context"
	"sync"
	"time"
)

// DefaultTickPeriod is deliberately much finer than any sane reminder
// interval so elapsed-time checks are accurate to within one tick.
const DefaultTickPeriod = 10 * time.Second

// Ticker is a clock source running on its own goroutine. It holds no domain
// state; the holder re-evaluates the decision function on every tick.
// Start while running is a no-op, and Stop blocks until the loop goroutine
// has exited, so no tick callback runs after Stop returns.
type Ticker struct {
	period time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTicker creates a ticker with the given period, or DefaultTickPeriod
// when period is not positive.
func NewTicker(period time.Duration) *Ticker {
	if period <= 0 {
		period = DefaultTickPeriod
	}
	return &Ticker{period: period}
}

// Start begins ticking. onTick runs on the ticker's goroutine, one tick at
// a time: the next tick is not evaluated until the previous callback has
// returned.
func (t *Ticker) Start(ctx context.Context, onTick func(now time.Time)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return // already running
	}

	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	done := t.done

	go func() {
		defer close(done)
		ticker := time.NewTicker(t.period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				onTick(now)
			}
		}
	}()
}

// Stop halts the ticker and waits for the loop goroutine to exit. Safe to
// call repeatedly and while idle.
func (t *Ticker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the ticker is currently started.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}
