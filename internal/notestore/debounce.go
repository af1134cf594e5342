package notestore

import (
	"sync"
	"time"
)

// debouncer holds the latest pushed value and fires it once no new value has
// arrived for delay. Superseded values are dropped without ever firing.
//
// Lock order is fireMu then mu, both in the timer callback and in Flush, so a
// Flush waits for an in-flight fire to finish.
type debouncer[T any] struct {
	delay time.Duration
	fire  func(T)

	fireMu sync.Mutex

	mu       sync.Mutex
	timer    *time.Timer
	deadline time.Time // end of the current quiet period
	pending  T
	has      bool
	stopped  bool
}

func newDebouncer[T any](delay time.Duration, fire func(T)) *debouncer[T] {
	return &debouncer[T]{delay: delay, fire: fire}
}

// Push replaces the pending value and restarts the quiet period.
func (d *debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = v
	d.has = true
	d.deadline = time.Now().Add(d.delay)
	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.onTimer)
		return
	}
	d.timer.Reset(d.delay)
}

// Pending returns the value waiting to fire, if any.
func (d *debouncer[T]) Pending() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.has
}

// Flush fires the pending value now instead of waiting for the quiet period.
func (d *debouncer[T]) Flush() {
	d.fireMu.Lock()
	defer d.fireMu.Unlock()
	if v, ok := d.take(); ok {
		d.fire(v)
	}
}

// Stop flushes the pending value and rejects further pushes.
func (d *debouncer[T]) Stop() {
	d.Flush()
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
}

// onTimer fires the pending value unless a Push landed after the timer
// expired, in which case it waits out the rest of that push's quiet period.
func (d *debouncer[T]) onTimer() {
	d.fireMu.Lock()
	defer d.fireMu.Unlock()

	d.mu.Lock()
	if left := time.Until(d.deadline); d.has && !d.stopped && left > 0 {
		d.timer.Reset(left)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	if v, ok := d.take(); ok {
		d.fire(v)
	}
}

func (d *debouncer[T]) take() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var zero T
	if !d.has {
		return zero, false
	}
	v := d.pending
	d.pending, d.has = zero, false
	if d.timer != nil {
		d.timer.Stop()
	}
	return v, true
}
