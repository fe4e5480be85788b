// Package debounce delays an action until a burst of triggers has been quiet
// for a fixed interval.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the autosave quiet interval.
const DefaultDelay = 500 * time.Millisecond

// Debouncer holds at most one pending task. Each Trigger replaces the pending
// task and restarts the delay; a replaced task never runs.
//
// Running a task (from the timer or from Flush), Cancel and Stop are
// serialized: once Cancel returns, no task taken before it is still running.
type Debouncer struct {
	delay time.Duration

	// run is held while a task executes and by Cancel and Stop. It is always
	// acquired before mu.
	run sync.Mutex

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	gen     uint64
	running bool
	stopped bool

	idle func()
}

// New creates a Debouncer. A non-positive delay selects DefaultDelay.
func New(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay}
}

// Delay returns the quiet interval.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger schedules fn to run after the quiet interval, cancelling any task
// scheduled earlier.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = fn
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// fire runs the pending task if it is still the one scheduled as gen. A timer
// whose task was superseded, flushed or cancelled finds a newer gen and does
// nothing.
func (d *Debouncer) fire(gen uint64) {
	d.run.Lock()
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		d.run.Unlock()
		return
	}
	fn := d.take()
	d.running = true
	d.mu.Unlock()

	d.execute(fn)
}

// execute runs fn with d.run held and releases it afterwards.
func (d *Debouncer) execute(fn func()) {
	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		d.run.Unlock()
		d.notifyIdle()
	}()
	fn()
}

// take clears the pending task and returns it. Callers hold d.mu.
func (d *Debouncer) take() func() {
	fn := d.pending
	d.pending = nil
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return fn
}

// Pending reports whether a task is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Idle reports whether no task is waiting or running.
func (d *Debouncer) Idle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending == nil && !d.running
}

// Flush runs the pending task now, on the calling goroutine, after any task
// already running has finished. It reports whether there was one.
func (d *Debouncer) Flush() bool {
	d.run.Lock()
	d.mu.Lock()
	if d.pending == nil {
		d.mu.Unlock()
		d.run.Unlock()
		return false
	}
	fn := d.take()
	d.running = true
	d.mu.Unlock()

	d.execute(fn)
	return true
}

// Cancel drops the pending task and waits for a running one to finish. It
// reports whether a task was dropped.
func (d *Debouncer) Cancel() bool {
	d.run.Lock()
	d.mu.Lock()
	had := d.pending != nil
	d.take()
	d.mu.Unlock()
	d.run.Unlock()

	d.notifyIdle()
	return had
}

// Stop cancels the pending task, waits for a running one and ignores all
// later triggers.
func (d *Debouncer) Stop() {
	d.run.Lock()
	defer d.run.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.take()
	d.stopped = true
}

func (d *Debouncer) notifyIdle() {
	if d.idle != nil {
		d.idle()
	}
}
