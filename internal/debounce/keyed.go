package debounce

import (
	"sync"
	"time"
)

// Keyed keeps an independent Debouncer per key, so bursts on different keys
// do not cancel each other. A key's Debouncer is dropped once it has nothing
// pending or running.
type Keyed struct {
	delay time.Duration

	mu      sync.Mutex
	m       map[string]*Debouncer
	stopped bool
}

// NewKeyed creates a Keyed debouncer with the given delay.
func NewKeyed(delay time.Duration) *Keyed {
	return &Keyed{delay: delay, m: make(map[string]*Debouncer)}
}

// Trigger schedules fn for key. Triggers after Stop are ignored.
func (k *Keyed) Trigger(key string, fn func()) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.stopped {
		return
	}
	d, ok := k.m[key]
	if !ok {
		d = New(k.delay)
		d.idle = func() { k.evict(key, d) }
		k.m[key] = d
	}
	d.Trigger(fn)
}

func (k *Keyed) lookup(key string) (*Debouncer, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, ok := k.m[key]
	return d, ok
}

// evict forgets d once it is idle and still registered for key.
func (k *Keyed) evict(key string, d *Debouncer) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.m[key] == d && d.Idle() {
		delete(k.m, key)
	}
}

// Len returns the number of keys with a task pending or running.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.m)
}

// Pending reports whether key has a task waiting.
func (k *Keyed) Pending(key string) bool {
	d, ok := k.lookup(key)
	return ok && d.Pending()
}

// Flush runs the pending task for key now.
func (k *Keyed) Flush(key string) bool {
	d, ok := k.lookup(key)
	return ok && d.Flush()
}

// Cancel drops the pending task for key and waits for a running one.
func (k *Keyed) Cancel(key string) bool {
	d, ok := k.lookup(key)
	return ok && d.Cancel()
}

// FlushAll runs every pending task now and returns how many ran.
func (k *Keyed) FlushAll() int {
	k.mu.Lock()
	all := make([]*Debouncer, 0, len(k.m))
	for _, d := range k.m {
		all = append(all, d)
	}
	k.mu.Unlock()

	n := 0
	for _, d := range all {
		if d.Flush() {
			n++
		}
	}
	return n
}

// Stop cancels every pending task and ignores later triggers.
func (k *Keyed) Stop() {
	k.mu.Lock()
	k.stopped = true
	all := make([]*Debouncer, 0, len(k.m))
	for key, d := range k.m {
		all = append(all, d)
		delete(k.m, key)
	}
	k.mu.Unlock()

	for _, d := range all {
		d.Stop()
	}
}
