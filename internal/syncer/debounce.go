package syncer

import (
	"sync"
	"time"
)

type stopper interface {
	Stop() bool
}

// Debouncer runs fn once after a quiet window. Every Trigger restarts the
// window instead of queueing another run.
type Debouncer struct {
	mu        sync.Mutex
	window    time.Duration
	fn        func()
	timer     stopper
	gen       uint64
	afterFunc func(time.Duration, func()) stopper
}

func NewDebouncer(window time.Duration, fn func()) *Debouncer {
	return &Debouncer{
		window: window,
		fn:     fn,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
}

// Trigger (re)starts the quiet window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.afterFunc(d.window, func() { d.fire(gen) })
}

// Flush runs the pending action now. It reports whether one was pending.
func (d *Debouncer) Flush() bool {
	if !d.take() {
		return false
	}
	d.fn()
	return true
}

// Cancel drops the pending action. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	return d.take()
}

// Pending reports whether an action is waiting for its window to close.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) take() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// a timer that lost the race with Trigger, Flush or Cancel is stale
	if gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.fn()
}
