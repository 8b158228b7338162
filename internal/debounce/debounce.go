// Package debounce coalesces bursts of triggers into a single call.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Debouncer runs a function after a quiet period. Each Trigger resets the
// timer and cancels the context of any run still in flight, so only the
// latest request survives a burst (cancel-on-new-input semantics).
type Debouncer struct {
	delay time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
}

// New creates a Debouncer with the given quiet period.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn to run once the quiet period elapses. A Trigger
// arriving before then replaces the pending fn and cancels the context
// handed to any previous fn still running.
func (d *Debouncer) Trigger(fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.timer = time.AfterFunc(d.delay, func() {
		defer cancel()
		fn(ctx)
	})
}

// Stop cancels any pending or in-flight run.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
