package gallery

import (
	"sync"
	"time"
)

// Viewer defaults.
const (
	DefaultInterval       = 4 * time.Second
	DefaultSwipeThreshold = 50.0
)

// Ticker is the subset of time.Ticker the viewer needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewStdTicker adapts time.NewTicker.
func NewStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// ViewerOption customises a Viewer.
type ViewerOption func(*Viewer)

// WithInterval overrides the auto-advance interval.
func WithInterval(d time.Duration) ViewerOption {
	return func(v *Viewer) {
		if d > 0 {
			v.interval = d
		}
	}
}

// WithTickerFactory swaps the ticker source, mainly for tests.
func WithTickerFactory(factory func(time.Duration) Ticker) ViewerOption {
	return func(v *Viewer) {
		if factory != nil {
			v.newTicker = factory
		}
	}
}

// WithAutoAdvance sets the initial auto-advance state. It defaults to on.
func WithAutoAdvance(enabled bool) ViewerOption {
	return func(v *Viewer) {
		v.auto = enabled
	}
}

// WithStartIndex positions the viewer; out-of-range values wrap.
func WithStartIndex(i int) ViewerOption {
	return func(v *Viewer) {
		v.start = i
	}
}

// WithOnChange registers a callback invoked after every index change.
func WithOnChange(fn func(index int)) ViewerOption {
	return func(v *Viewer) {
		v.onChange = fn
	}
}

// Viewer is a paginated image viewer. The index wraps in both directions and
// auto-advance runs only while the viewer is mounted. Nothing is persisted.
type Viewer struct {
	mu        sync.Mutex
	images    []string
	logo      string
	index     int
	start     int
	auto      bool
	mounted   bool
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	onChange  func(int)

	stop chan struct{}
	done chan struct{}
}

// NewViewer constructs a viewer over images.
func NewViewer(images []string, logo string, opts ...ViewerOption) *Viewer {
	v := &Viewer{
		images:    append([]string(nil), images...),
		logo:      logo,
		auto:      true,
		interval:  DefaultInterval,
		newTicker: NewStdTicker,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.index = v.wrap(v.start)
	return v
}

// Images returns a copy of the image list.
func (v *Viewer) Images() []string {
	return append([]string(nil), v.images...)
}

// Logo returns the watermark reference, if any.
func (v *Viewer) Logo() string { return v.logo }

// Len returns the number of images.
func (v *Viewer) Len() int { return len(v.images) }

// Index returns the current 0-based position.
func (v *Viewer) Index() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.index
}

// Current returns the image at the current position, or "" when empty.
func (v *Viewer) Current() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.images) == 0 {
		return ""
	}
	return v.images[v.index]
}

// AutoAdvance reports whether auto-advance is enabled.
func (v *Viewer) AutoAdvance() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.auto
}

// NextIndex returns the index Next would move to without moving.
func (v *Viewer) NextIndex() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.wrap(v.index + 1)
}

// PrevIndex returns the index Prev would move to without moving.
func (v *Viewer) PrevIndex() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.wrap(v.index - 1)
}

// Next advances one image, wrapping to the first after the last.
func (v *Viewer) Next() int { return v.move(1) }

// Prev steps back one image, wrapping to the last before the first.
func (v *Viewer) Prev() int { return v.move(-1) }

// GoTo jumps to i. It reports false and leaves the index unchanged when i is
// outside the image range.
func (v *Viewer) GoTo(i int) bool {
	v.mu.Lock()
	if i < 0 || i >= len(v.images) {
		v.mu.Unlock()
		return false
	}
	v.index = i
	cb := v.onChange
	v.mu.Unlock()
	if cb != nil {
		cb(i)
	}
	return true
}

// Swipe interprets a horizontal gesture. A leftward drag beyond the threshold
// advances, a rightward one steps back; shorter drags are ignored.
func (v *Viewer) Swipe(startX, endX float64) int {
	distance := startX - endX
	switch {
	case distance > DefaultSwipeThreshold:
		return v.Next()
	case distance < -DefaultSwipeThreshold:
		return v.Prev()
	}
	return v.Index()
}

// SetAutoAdvance toggles auto-advance, starting or stopping the timer when mounted.
func (v *Viewer) SetAutoAdvance(enabled bool) {
	v.mu.Lock()
	v.auto = enabled
	wait := v.syncLoopLocked()
	v.mu.Unlock()
	wait()
}

// Mount marks the viewer visible and starts auto-advance when enabled.
func (v *Viewer) Mount() {
	v.mu.Lock()
	v.mounted = true
	wait := v.syncLoopLocked()
	v.mu.Unlock()
	wait()
}

// Unmount suspends auto-advance. The current index is kept.
func (v *Viewer) Unmount() {
	v.mu.Lock()
	v.mounted = false
	wait := v.syncLoopLocked()
	v.mu.Unlock()
	wait()
}

// Close unmounts the viewer. It exists so callers can defer teardown.
func (v *Viewer) Close() { v.Unmount() }

func (v *Viewer) move(delta int) int {
	v.mu.Lock()
	if len(v.images) == 0 {
		v.mu.Unlock()
		return 0
	}
	v.index = v.wrap(v.index + delta)
	idx := v.index
	cb := v.onChange
	v.mu.Unlock()
	if cb != nil {
		cb(idx)
	}
	return idx
}

func (v *Viewer) wrap(i int) int {
	n := len(v.images)
	if n == 0 {
		return 0
	}
	return ((i % n) + n) % n
}

// syncLoopLocked starts or stops the auto-advance loop to match state. The
// returned func must be called after releasing the lock.
func (v *Viewer) syncLoopLocked() func() {
	running := v.stop != nil
	want := v.mounted && v.auto && len(v.images) > 1
	switch {
	case want && !running:
		v.stop = make(chan struct{})
		v.done = make(chan struct{})
		go v.loop(v.newTicker(v.interval), v.stop, v.done)
	case !want && running:
		close(v.stop)
		done := v.done
		v.stop, v.done = nil, nil
		return func() { <-done }
	}
	return func() {}
}

func (v *Viewer) loop(t Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			select {
			case <-stop:
				return
			default:
			}
			v.move(1)
		}
	}
}
