// Package debounce delays a side effect until its trigger has been quiet for
// a fixed window.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs fn with the most recent argument once delay has passed
// without a new Trigger. It is safe for concurrent use.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	arg     T
	gen     uint64
}

// New creates a debouncer for fn.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Trigger records arg and restarts the quiet window.
func (d *Debouncer[T]) Trigger(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.arg = arg
	d.pending = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	arg := d.arg
	d.pending = false
	d.timer = nil
	d.mu.Unlock()
	d.fn(arg)
}

// Flush runs the pending call, if any, immediately on the caller's goroutine.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	arg := d.arg
	d.pending = false
	d.gen++
	d.mu.Unlock()
	d.fn(arg)
}

// Stop drops the pending call without running it.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
	d.gen++
}

// Pending reports whether a call is waiting for its window to elapse.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
