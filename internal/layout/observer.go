package layout

import "sync"

// SizeObserver is the capability the geometry consumer depends on to learn
// about container height changes. The concrete source (a browser viewport
// report, a test harness) is injected at construction.
type SizeObserver interface {
	// Observe registers cb for height updates and returns a cancel func that
	// detaches it. cb may be invoked immediately with the last known height.
	Observe(cb func(heightPx int)) (cancel func())
}

// HeightFeed is a SizeObserver fed by explicit Report calls, e.g. the web
// layer forwarding viewport measurements. Reports of non-positive heights
// are ignored, matching the resize-observer behavior the UI relied on.
type HeightFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(int)
	last   int
}

// NewHeightFeed creates a feed with the given initial height.
func NewHeightFeed(initialPx int) *HeightFeed {
	return &HeightFeed{
		subs: make(map[int]func(int)),
		last: initialPx,
	}
}

// Report publishes a new container height to all observers.
func (f *HeightFeed) Report(heightPx int) {
	if heightPx <= 0 {
		return
	}

	f.mu.Lock()
	f.last = heightPx
	cbs := make([]func(int), 0, len(f.subs))
	for _, cb := range f.subs {
		cbs = append(cbs, cb)
	}
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(heightPx)
	}
}

// Last returns the most recently reported height.
func (f *HeightFeed) Last() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Observe implements SizeObserver. The callback fires once immediately with
// the last known height if one exists.
func (f *HeightFeed) Observe(cb func(heightPx int)) (cancel func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = cb
	last := f.last
	f.mu.Unlock()

	if last > 0 {
		cb(last)
	}

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}
