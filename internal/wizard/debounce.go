package wizard

import (
	"sync"
	"time"
)

// DefaultSaveDelay coalesces edits before they are written.
const DefaultSaveDelay = time.Second

// Timer is the part of *time.Timer the debouncer uses.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d, like time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Debouncer runs the most recently scheduled task once the delay elapses
// without a newer schedule.
type Debouncer struct {
	delay time.Duration
	after AfterFunc

	mu      sync.Mutex
	timer   Timer
	pending func()
	gen     uint64
}

// NewDebouncer returns a debouncer. A nil after uses time.AfterFunc.
func NewDebouncer(delay time.Duration, after AfterFunc) *Debouncer {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	if after == nil {
		after = stdAfterFunc
	}
	return &Debouncer{delay: delay, after: after}
}

// Schedule replaces any pending task with fn and restarts the delay.
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

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending, d.timer = nil, nil
	d.mu.Unlock()
	fn()
}

// Flush runs the pending task now, if any. It reports whether a task ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.pending
	d.clearLocked()
	d.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Cancel drops the pending task without running it.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	had := d.pending != nil
	d.clearLocked()
	return had
}

// Pending reports whether a task is waiting.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

func (d *Debouncer) clearLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	d.pending, d.timer = nil, nil
}
