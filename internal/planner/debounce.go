package planner

import (
	"sync"
	"time"
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through
// RealAfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

// RealAfterFunc wraps time.AfterFunc.
func RealAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs only the last action scheduled within a quiet window.
// At most one timer is live; scheduling stops and supersedes it.
type Debouncer struct {
	delay time.Duration
	after AfterFunc
	// guard, when set, is held while an action runs so that the action
	// and the staleness check are atomic with respect to other holders.
	guard sync.Locker

	mu      sync.Mutex
	timer   Timer
	gen     uint64
	pending func()
}

func NewDebouncer(delay time.Duration, after AfterFunc, guard sync.Locker) *Debouncer {
	if after == nil {
		after = RealAfterFunc
	}
	return &Debouncer{delay: delay, after: after, guard: guard}
}

// Schedule replaces any pending action with fn and restarts the window.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = fn
	d.timer = d.after(d.delay, func() { d.fire(gen) })
}

// Pending reports whether an action is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Cancel drops the pending action, if any.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.takeLocked() != nil
}

// Flush runs the pending action now, on the calling goroutine.
func (d *Debouncer) Flush() bool {
	if d.guard != nil {
		d.guard.Lock()
		defer d.guard.Unlock()
	}
	d.mu.Lock()
	fn := d.takeLocked()
	d.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

func (d *Debouncer) fire(gen uint64) {
	if d.guard != nil {
		d.guard.Lock()
		defer d.guard.Unlock()
	}
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	fn := d.takeLocked()
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (d *Debouncer) takeLocked() func() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	fn := d.pending
	d.pending = nil
	return fn
}
