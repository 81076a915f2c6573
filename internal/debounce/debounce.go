// Package debounce coalesces bursts of calls per key into a single delayed
// call.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs the most recent function scheduled for a key once its delay
// has passed without another call for the same key. It is safe for concurrent
// use.
type Debouncer struct {
	mu      sync.Mutex
	timers  map[string]*entry
	stopped bool
}

type entry struct {
	timer *time.Timer
	gen   uint64
}

// New returns an empty Debouncer.
func New() *Debouncer {
	return &Debouncer{timers: make(map[string]*entry)}
}

// Call schedules fn under key after delay, replacing anything still pending
// for that key. Calls after Stop are ignored.
func (d *Debouncer) Call(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	e, ok := d.timers[key]
	if !ok {
		e = &entry{}
		d.timers[key] = e
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	gen := e.gen
	e.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		cur, ok := d.timers[key]
		if !ok || cur.gen != gen || d.stopped {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

// Pending reports whether a call is scheduled for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[key]
	return ok
}

// Cancel drops the pending call for key, if any.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.timers[key]; ok {
		e.timer.Stop()
		delete(d.timers, key)
	}
}

// CancelAll drops every pending call. The Debouncer stays usable.
func (d *Debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Stop drops every pending call and ignores all future ones.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.cancelLocked()
}

func (d *Debouncer) cancelLocked() {
	for k, e := range d.timers {
		e.timer.Stop()
		delete(d.timers, k)
	}
}
