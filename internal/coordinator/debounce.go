// Package coordinator owns the timing behavior of the calendar: debounced
// schedule fetching, debounced conflict checking, and the save gate. All
// shared state is mutex-serialized; timers and HTTP calls are the only
// asynchrony.
package coordinator

import (
	"sync"
	"time"
)

// Debouncer collapses rapid triggers into one deferred call. At most one
// timer is pending at a time; each Trigger cancels the previous pending one
// (last write wins, nothing is queued). A fired timer that has already
// started its function is not interrupted.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a Debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn to run after the quiet period, cancelling any
// still-pending earlier schedule. After Stop it is a no-op.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels any pending timer and disables further triggers. It does not
// wait for an already-fired function to finish.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
